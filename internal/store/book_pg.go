package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookPG struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewBookPG(db *pgxpool.Pool, timeout time.Duration) *BookPG {
	return &BookPG{db: db, timeout: timeout}
}

func (r *BookPG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *BookPG) Create(ctx context.Context, book *entity.Book) error {
	const query = `
	INSERT INTO books (title, author_id, published_year, genre)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, book.Title, book.AuthorID, book.PublishedYear, book.Genre).
		Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return usecase.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return usecase.ErrAuthorNotFound
		}
		return err
	}
	return nil
}

func (r *BookPG) GetByID(ctx context.Context, id int64) (entity.Book, error) {
	const query = `
	SELECT id, title, author_id, published_year, genre, created_at, updated_at
	FROM books
	WHERE id = $1
	LIMIT 1
	`
	var b entity.Book
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, id).
		Scan(&b.ID, &b.Title, &b.AuthorID, &b.PublishedYear, &b.Genre, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, usecase.ErrNotFound
		}
		return entity.Book{}, err
	}
	return b, nil
}

func (r *BookPG) Search(ctx context.Context, p usecase.SearchParams) ([]entity.Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if p.Title != "" {
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", argn))
		args = append(args, "%"+p.Title+"%")
		argn++
	}

	if p.AuthorID != nil {
		clauses = append(clauses, fmt.Sprintf("author_id = $%d", argn))
		args = append(args, *p.AuthorID)
		argn++
	}

	if p.Genre != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(genre) = LOWER($%d)", argn))
		args = append(args, p.Genre)
		argn++
	}

	if p.YearFrom != nil {
		clauses = append(clauses, fmt.Sprintf("published_year >= $%d", argn))
		args = append(args, *p.YearFrom)
		argn++
	}

	if p.YearTo != nil {
		clauses = append(clauses, fmt.Sprintf("published_year <= $%d", argn))
		args = append(args, *p.YearTo)
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	// Default order is stable by primary key.
	sortCol := "id"
	switch p.Sort {
	case "title":
		sortCol = "title"
	case "year":
		sortCol = "published_year"
	}
	order := "ASC"
	if p.Desc {
		order = "DESC"
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM books %s", where)
	var total int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, title, author_id, published_year, genre, created_at, updated_at
		FROM books
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d`,
		where, sortCol, order, argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, p.Limit, p.Offset)
	timeoutCtx2, cancel2 := r.withTimeout(ctx)
	defer cancel2()
	rows, err := r.db.Query(timeoutCtx2, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []entity.Book
	for rows.Next() {
		var b entity.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.AuthorID, &b.PublishedYear, &b.Genre, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *BookPG) Update(ctx context.Context, book *entity.Book) error {
	const query = `
	UPDATE books
	SET title = $2, author_id = $3, published_year = $4, genre = $5, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		book.ID, book.Title, book.AuthorID, book.PublishedYear, book.Genre).
		Scan(&book.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return usecase.ErrNotFound
		}
		if isUniqueViolation(err) {
			return usecase.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return usecase.ErrAuthorNotFound
		}
		return err
	}
	return nil
}

func (r *BookPG) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM books WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}
