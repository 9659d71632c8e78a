package tool

import (
	"context"
	"errors"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/docstore"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/websearch"
)

const FileNotFound = "File not found"

// DocumentReader resolves docs/<domain>/<filename> to text.
type DocumentReader interface {
	Lookup(ctx context.Context, domain, filename string) (string, error)
}

// Searcher answers public web queries.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type handler func(ctx context.Context, args Args) string

// Registry is the tool set of one specialist. Execute never returns an error:
// every failure becomes result text for the model.
type Registry struct {
	domain    contractx.Domain
	infos     []*schema.ToolInfo
	handlers  map[string]handler
	callbacks []einocb.Handler
}

type Option func(*Registry)

// WithCallbacks reports every execution to eino tool callback handlers.
func WithCallbacks(handlers ...einocb.Handler) Option {
	return func(r *Registry) {
		for _, h := range handlers {
			if h != nil {
				r.callbacks = append(r.callbacks, h)
			}
		}
	}
}

// BuildForDomain binds document reads to the domain's own folder and wires
// web search. A nil searcher falls back to the offline stub.
func BuildForDomain(domain contractx.Domain, docs DocumentReader, search Searcher, opts ...Option) *Registry {
	if search == nil {
		search = websearch.Stub{}
	}
	r := &Registry{
		domain:   domain,
		infos:    infosForDomain(domain),
		handlers: map[string]handler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.handlers[ToolReadDocument] = r.readDocument(docs)
	r.handlers[ToolWebSearch] = webSearch(search)
	return r
}

func (r *Registry) Infos() []*schema.ToolInfo {
	return r.infos
}

func (r *Registry) Domain() contractx.Domain {
	return r.domain
}

// Execute resolves the invocation by name and runs it.
func (r *Registry) Execute(ctx context.Context, inv Invocation) string {
	if len(r.callbacks) == 0 {
		return r.execute(ctx, inv)
	}

	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      inv.Name,
		Type:      "HelpdeskTool",
		Component: components.ComponentOfTool,
	}, r.callbacks...)
	ctx = einocb.OnStart(ctx, &einotool.CallbackInput{ArgumentsInJSON: inv.RawArgs})
	result := r.execute(ctx, inv)
	einocb.OnEnd(ctx, &einotool.CallbackOutput{Response: result})
	return result
}

func (r *Registry) execute(ctx context.Context, inv Invocation) (result string) {
	h, ok := r.handlers[inv.Name]
	if !ok {
		log.Warn().Str("agent", string(r.domain.AgentType)).Str("tool", inv.Name).Msg("unknown tool requested")
		return "Unknown tool: " + inv.Name
	}

	args, err := Decode(inv.Name, inv.RawArgs)
	if err != nil {
		log.Warn().Err(err).Str("agent", string(r.domain.AgentType)).Str("tool", inv.Name).Msg("rejected tool arguments")
		return fmt.Sprintf("Invalid arguments for %s: %v", inv.Name, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("tool", inv.Name).Msg("tool panicked")
			result = fmt.Sprintf("Tool %s failed: %v", inv.Name, rec)
		}
	}()

	log.Debug().Str("agent", string(r.domain.AgentType)).Str("tool", inv.Name).Str("call_id", inv.ID).Msg("executing tool")
	return h(ctx, args)
}

func (r *Registry) readDocument(docs DocumentReader) handler {
	return func(ctx context.Context, args Args) string {
		a, ok := args.(DocumentLookupArgs)
		if !ok || docs == nil {
			return FileNotFound
		}
		if a.Domain != "" && a.Domain != r.domain.Tag {
			log.Debug().Str("requested", a.Domain).Str("forced", r.domain.Tag).Msg("document domain overridden")
		}
		a.Domain = r.domain.Tag

		text, err := docs.Lookup(ctx, a.Domain, a.Filename)
		if err != nil {
			if !errors.Is(err, docstore.ErrDocumentNotFound) {
				log.Warn().Err(err).Str("domain", a.Domain).Str("filename", a.Filename).Msg("document lookup failed")
			}
			return FileNotFound
		}
		return text
	}
}

func webSearch(search Searcher) handler {
	return func(ctx context.Context, args Args) string {
		a, ok := args.(SearchArgs)
		if !ok {
			return "Web search failed: bad arguments"
		}
		out, err := search.Search(ctx, a.Query)
		if err != nil {
			return "Web search failed: " + err.Error()
		}
		return out
	}
}

func infosForDomain(domain contractx.Domain) []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolReadDocument,
			Desc: fmt.Sprintf("Read an internal %s document by filename and return its text.", domain.DisplayName),
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"domain":   {Type: schema.String, Desc: fmt.Sprintf("Document domain, always %q", domain.Tag), Enum: []string{domain.Tag}},
				"filename": {Type: schema.String, Desc: "File name inside the domain folder", Required: true},
			}),
		},
		{
			Name: ToolWebSearch,
			Desc: "Search the public web for general information.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Plain text query", Required: true},
			}),
		},
	}
}
