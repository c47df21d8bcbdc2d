package usecase

import (
	"context"

	"bookhub/internal/entity"
)

type AuthorRepository interface {
	Create(ctx context.Context, a *entity.Author) error
	List(ctx context.Context) ([]entity.Author, error)
	GetByID(ctx context.Context, id int64) (entity.Author, error)
	Update(ctx context.Context, a *entity.Author) error
	Delete(ctx context.Context, id int64) error
}
