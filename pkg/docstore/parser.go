package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Parser turns raw file bytes into plain text.
type Parser interface {
	Parse(ctx context.Context, data []byte) (string, error)
}

type ParserFunc func(ctx context.Context, data []byte) (string, error)

func (f ParserFunc) Parse(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

var (
	PDFParser  Parser = ParserFunc(parsePDF)
	HTMLParser Parser = ParserFunc(parseHTML)
	TextParser Parser = ParserFunc(parseText)
)

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// Extract detects the content type and returns the text with its MIME type.
func Extract(ctx context.Context, filename string, data []byte) (string, string, error) {
	mtype := mimetype.Detect(data)

	var parser Parser
	switch {
	case mtype.Is("application/pdf"):
		parser = PDFParser
	case mtype.Is("text/html"), mtype.Is("application/xhtml+xml"):
		parser = HTMLParser
	case strings.HasPrefix(mtype.String(), "text/"):
		parser = TextParser
	case textExtensions[strings.ToLower(filepath.Ext(filename))] && utf8.Valid(data):
		parser = TextParser
	default:
		return "", mtype.String(), fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, filename, mtype.String())
	}

	text, err := parser.Parse(ctx, data)
	if err != nil {
		return "", mtype.String(), fmt.Errorf("extract %s: %w", filename, err)
	}
	return strings.TrimSpace(text), mtype.String(), nil
}

func parsePDF(_ context.Context, data []byte) (string, error) {
	reader := bytes.NewReader(data)
	r, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageIndex, err)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func parseHTML(_ context.Context, data []byte) (string, error) {
	return htmltomarkdown.ConvertString(string(data))
}

func parseText(_ context.Context, data []byte) (string, error) {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}
