package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
)

const (
	ToolReadDocument = "read_document"
	ToolWebSearch    = "web_search"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Args is the closed set of decoded tool arguments.
type Args interface {
	ToolName() string
}

// DocumentLookupArgs reads docs/<domain>/<filename>. Domain is overwritten by
// the registry with the specialist's own tag.
type DocumentLookupArgs struct {
	Domain   string `json:"domain"`
	Filename string `json:"filename" validate:"required,max=255"`
}

func (DocumentLookupArgs) ToolName() string { return ToolReadDocument }

type SearchArgs struct {
	Query string `json:"query" validate:"required,max=512"`
}

func (SearchArgs) ToolName() string { return ToolWebSearch }

// Invocation is one tool call requested by the model.
type Invocation struct {
	ID      string
	Name    string
	RawArgs string
}

func NewInvocation(call schema.ToolCall) Invocation {
	return Invocation{
		ID:      call.ID,
		Name:    strings.TrimSpace(call.Function.Name),
		RawArgs: call.Function.Arguments,
	}
}

// Decode parses and validates the JSON arguments of a named tool.
func Decode(name string, raw string) (Args, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var args Args
	switch name {
	case ToolReadDocument:
		var a DocumentLookupArgs
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
		a.Domain = strings.TrimSpace(a.Domain)
		a.Filename = strings.TrimSpace(a.Filename)
		args = a
	case ToolWebSearch:
		var a SearchArgs
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
		a.Query = strings.TrimSpace(a.Query)
		args = a
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if err := validate.Struct(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	return args, nil
}
