package port

import "evfmap/internal/domain"

type ListingParser interface {
	Parse(text string) ([]domain.Unit, error)
}

type Mapper interface {
	Map(text string) (*domain.MapResult, error)
}
