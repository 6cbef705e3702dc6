// Package category serves category lookups from a single upstream source.
package category

import "context"

// Source is anything that can list category names.
type Source interface {
	CategoryList(ctx context.Context) ([]string, error)
}

// Finder is what the HTTP layer depends on.
type Finder interface {
	FindAll(ctx context.Context) ([]string, error)
}

// Service passes lookups straight through to its Source: no caching,
// filtering or fallback list.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

func (s *Service) FindAll(ctx context.Context) ([]string, error) {
	return s.src.CategoryList(ctx)
}
