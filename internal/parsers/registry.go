package parsers

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps formats to parsers. Detection tries parsers in
// registration order, so package formats should be registered before
// generic directory formats.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.Format]driven.Parser
	order   []domain.Format
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[domain.Format]driven.Parser),
	}
}

// Register adds a parser to the registry.
func (r *Registry) Register(parser driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := parser.Format()
	if _, exists := r.parsers[f]; !exists {
		r.order = append(r.order, f)
	}
	r.parsers[f] = parser
}

// Get returns the parser for a format.
func (r *Registry) Get(format domain.Format) (driven.Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for format %q", domain.ErrUnsupportedType, format)
	}
	return p, nil
}

// Detect returns the first registered parser that accepts the path.
func (r *Registry) Detect(path string) (driven.Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.order {
		if p := r.parsers[f]; p.Detect(path) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot detect format of %s", domain.ErrUnsupportedType, path)
}

// Formats returns the registered formats in registration order.
func (r *Registry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Format, len(r.order))
	copy(out, r.order)
	return out
}
