package store

import (
	"context"
	"errors"
	"time"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuthorPG struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewAuthorPG(db *pgxpool.Pool, timeout time.Duration) *AuthorPG {
	return &AuthorPG{db: db, timeout: timeout}
}

func (r *AuthorPG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *AuthorPG) Create(ctx context.Context, author *entity.Author) error {
	const query = `
	INSERT INTO authors (name, surname, birth_date, biography)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, author.Name, author.Surname, author.BirthDate, author.Biography).
		Scan(&author.ID, &author.CreatedAt, &author.UpdatedAt)
	if isUniqueViolation(err) {
		return usecase.ErrAlreadyExists
	}
	return err
}

func (r *AuthorPG) List(ctx context.Context) ([]entity.Author, error) {
	const query = `
	SELECT id, name, surname, birth_date, biography, created_at, updated_at
	FROM authors
	ORDER BY id ASC
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Author
	for rows.Next() {
		var a entity.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Surname, &a.BirthDate, &a.Biography, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AuthorPG) GetByID(ctx context.Context, id int64) (entity.Author, error) {
	const query = `
	SELECT id, name, surname, birth_date, biography, created_at, updated_at
	FROM authors
	WHERE id = $1
	LIMIT 1
	`
	var a entity.Author
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, id).
		Scan(&a.ID, &a.Name, &a.Surname, &a.BirthDate, &a.Biography, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Author{}, usecase.ErrNotFound
		}
		return entity.Author{}, err
	}
	return a, nil
}

func (r *AuthorPG) Update(ctx context.Context, author *entity.Author) error {
	const query = `
	UPDATE authors
	SET name = $2, surname = $3, birth_date = $4, biography = $5, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		author.ID, author.Name, author.Surname, author.BirthDate, author.Biography).
		Scan(&author.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return usecase.ErrNotFound
		}
		if isUniqueViolation(err) {
			return usecase.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *AuthorPG) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM authors WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		// books.author_id is ON DELETE RESTRICT
		if isForeignKeyViolation(err) {
			return usecase.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}
