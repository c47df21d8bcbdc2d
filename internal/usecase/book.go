package usecase

import (
	"context"

	"bookhub/internal/entity"
)

// SearchParams carries recognized filter criteria. Zero values mean
// "no filter"; pointer fields distinguish absent from zero.
type SearchParams struct {
	Title    string
	AuthorID *int64
	Genre    string
	YearFrom *int
	YearTo   *int
	Sort     string // "title" or "year"; default is primary key
	Desc     bool
	Limit    int
	Offset   int
}

type BookRepository interface {
	Create(ctx context.Context, b *entity.Book) error
	GetByID(ctx context.Context, id int64) (entity.Book, error)
	// Search returns the matching page plus the total match count.
	// Results are ordered stably by primary key unless Sort is set.
	Search(ctx context.Context, p SearchParams) ([]entity.Book, int, error)
	Update(ctx context.Context, b *entity.Book) error
	Delete(ctx context.Context, id int64) error
}
