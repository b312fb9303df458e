package port

import "evfmap/internal/domain"

// ResultStore persists mapped results keyed by a digest of the listing text.
type ResultStore interface {
	GetResult(key string) (*domain.MapResult, bool, error)

	PutResult(key string, result *domain.MapResult) error

	Count() (int, error)

	Clear() error

	Close() error
}
