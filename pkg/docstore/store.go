// Package docstore holds the internal documents specialists can read. A Store
// is built once at startup and is read-only afterwards.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidPath      = errors.New("invalid document path")
)

// Document is one extracted, text-only document.
type Document struct {
	Domain   string `json:"domain"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Source   string `json:"source"`
	Content  string `json:"-"`
}

// Size is the length of the extracted text in bytes.
func (d Document) Size() int {
	return len(d.Content)
}

type Store struct {
	docs   map[string]map[string]Document
	folded map[string]map[string]string
	count  int
}

// NewStore indexes documents by domain and filename. A later document with the
// same domain and filename replaces an earlier one.
func NewStore(docs ...Document) *Store {
	s := &Store{
		docs:   map[string]map[string]Document{},
		folded: map[string]map[string]string{},
	}
	for _, d := range docs {
		domain := strings.TrimSpace(d.Domain)
		filename := strings.TrimSpace(d.Filename)
		if validateSegment(domain) != nil || validateSegment(filename) != nil {
			continue
		}
		d.Domain, d.Filename = domain, filename

		byName, ok := s.docs[domain]
		if !ok {
			byName = map[string]Document{}
			s.docs[domain] = byName
			s.folded[domain] = map[string]string{}
		}
		if _, exists := byName[filename]; !exists {
			s.count++
		}
		byName[filename] = d
		s.folded[domain][strings.ToLower(filename)] = filename
	}
	return s
}

// Lookup returns the text of docs/<domain>/<filename>. Filenames match exactly
// first and case-insensitively second.
func (s *Store) Lookup(_ context.Context, domain, filename string) (string, error) {
	domain = strings.TrimSpace(domain)
	filename = strings.TrimSpace(filename)
	if err := validateSegment(domain); err != nil {
		return "", fmt.Errorf("%w: domain=%q", err, domain)
	}
	if err := validateSegment(filename); err != nil {
		return "", fmt.Errorf("%w: filename=%q", err, filename)
	}
	if s == nil {
		return "", ErrDocumentNotFound
	}

	byName, ok := s.docs[domain]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, domain, filename)
	}
	if d, ok := byName[filename]; ok {
		return d.Content, nil
	}
	if canonical, ok := s.folded[domain][strings.ToLower(filename)]; ok {
		return byName[canonical].Content, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, domain, filename)
}

// List returns every document ordered by domain and filename.
func (s *Store) List() []Document {
	if s == nil {
		return nil
	}
	out := make([]Document, 0, s.count)
	for _, byName := range s.docs {
		for _, d := range byName {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Filename < out[j].Filename
	})
	return out
}

// Filenames lists the documents of one domain in sorted order.
func (s *Store) Filenames(domain string) []string {
	if s == nil {
		return nil
	}
	byName := s.docs[strings.TrimSpace(domain)]
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// validateSegment rejects anything that is not a single path element.
func validateSegment(seg string) error {
	switch {
	case seg == "", seg == ".", seg == "..":
		return ErrInvalidPath
	case strings.ContainsAny(seg, `/\`), strings.ContainsRune(seg, 0):
		return ErrInvalidPath
	}
	return nil
}
