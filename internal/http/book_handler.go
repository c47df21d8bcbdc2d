package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"
)

type BookHandler struct {
	books usecase.BookRepository
}

func NewBookHandler(books usecase.BookRepository) *BookHandler {
	return &BookHandler{books: books}
}

type createBookReq struct {
	Title         string `json:"title" validate:"required,max=200"`
	AuthorID      int64  `json:"author_id" validate:"required,gt=0"`
	PublishedYear int    `json:"published_year" validate:"required,gte=1800,past_or_present_year"`
	Genre         string `json:"genre" validate:"required,oneof=Fiction Non-Fiction Science History"`
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", details)
		return
	}

	book := &entity.Book{
		Title:         req.Title,
		AuthorID:      req.AuthorID,
		PublishedYear: req.PublishedYear,
		Genre:         req.Genre,
	}
	if err := h.books.Create(r.Context(), book); err != nil {
		switch {
		case errors.Is(err, usecase.ErrAuthorNotFound):
			JSONError(w, http.StatusNotFound, CodeAuthorNotFound, "Author not found", nil)
		case errors.Is(err, usecase.ErrAlreadyExists):
			JSONError(w, http.StatusConflict, CodePersistenceConflict, "Book already exists", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}

	JSONSuccessCreated(w, book)
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize, detail := parsePagination(r)
	if detail != "" {
		JSONError(w, http.StatusBadRequest, CodeInvalidQuery, detail, nil)
		return
	}

	books, total, err := h.books.Search(r.Context(), usecase.SearchParams{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}
	if books == nil {
		books = []entity.Book{}
	}

	JSONSuccess(w, map[string]any{"books": books}, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
		return
	}

	book, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccess(w, book, nil)
}

// recognizedSearchKeys is the full allowlist for /books/search; anything
// else is an invalid query, not a silently ignored one.
var recognizedSearchKeys = map[string]bool{
	"title":            true,
	"author_id":        true,
	"genre":            true,
	"published_after":  true,
	"published_before": true,
	"sort":             true,
	"order":            true,
	"page":             true,
	"page_size":        true,
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	for key := range query {
		if !recognizedSearchKeys[key] {
			JSONError(w, http.StatusBadRequest, CodeInvalidQuery,
				fmt.Sprintf("Unrecognized filter key %q", key), nil)
			return
		}
	}

	params := usecase.SearchParams{
		Title: query.Get("title"),
		Genre: query.Get("genre"),
	}

	if raw := query.Get("author_id"); raw != "" {
		authorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			JSONError(w, http.StatusBadRequest, CodeInvalidQuery, "author_id must be an integer", nil)
			return
		}
		params.AuthorID = &authorID
	}

	if raw := query.Get("published_after"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(w, http.StatusBadRequest, CodeInvalidQuery, "published_after must be an integer", nil)
			return
		}
		params.YearFrom = &year
	}

	if raw := query.Get("published_before"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(w, http.StatusBadRequest, CodeInvalidQuery, "published_before must be an integer", nil)
			return
		}
		params.YearTo = &year
	}

	switch sort := query.Get("sort"); sort {
	case "", "title", "year":
		params.Sort = sort
	default:
		JSONError(w, http.StatusBadRequest, CodeInvalidQuery, "sort must be \"title\" or \"year\"", nil)
		return
	}

	switch order := query.Get("order"); order {
	case "", "asc":
	case "desc":
		params.Desc = true
	default:
		JSONError(w, http.StatusBadRequest, CodeInvalidQuery, "order must be \"asc\" or \"desc\"", nil)
		return
	}

	page, pageSize, detail := parsePagination(r)
	if detail != "" {
		JSONError(w, http.StatusBadRequest, CodeInvalidQuery, detail, nil)
		return
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	books, total, err := h.books.Search(r.Context(), params)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}
	if books == nil {
		books = []entity.Book{}
	}

	JSONSuccess(w, map[string]any{"books": books}, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

type updateBookReq struct {
	Title         *string `json:"title"`
	AuthorID      *int64  `json:"author_id"`
	PublishedYear *int    `json:"published_year"`
	Genre         *string `json:"genre"`
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
		return
	}

	var req updateBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}

	book, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	if req.Title != nil {
		book.Title = strings.TrimSpace(*req.Title)
	}
	if req.AuthorID != nil {
		book.AuthorID = *req.AuthorID
	}
	if req.PublishedYear != nil {
		book.PublishedYear = *req.PublishedYear
	}
	if req.Genre != nil {
		book.Genre = *req.Genre
	}

	if details := ValidateStruct(createBookReq{
		Title:         book.Title,
		AuthorID:      book.AuthorID,
		PublishedYear: book.PublishedYear,
		Genre:         book.Genre,
	}); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", details)
		return
	}

	if err := h.books.Update(r.Context(), &book); err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
		case errors.Is(err, usecase.ErrAuthorNotFound):
			JSONError(w, http.StatusNotFound, CodeAuthorNotFound, "Author not found", nil)
		case errors.Is(err, usecase.ErrAlreadyExists):
			JSONError(w, http.StatusConflict, CodePersistenceConflict, "Book already exists", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}

	JSONSuccess(w, book, nil)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
		return
	}

	if err := h.books.Delete(r.Context(), id); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccessNoContent(w)
}

const maxPageSize = 100

// parsePagination rejects non-numeric and non-positive values the same
// way the other numeric query params do; oversized page_size is capped.
func parsePagination(r *http.Request) (page, pageSize int, errDetail string) {
	page = 1
	pageSize = 20

	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, "page must be a positive integer"
		}
		page = v
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, "page_size must be a positive integer"
		}
		if v > maxPageSize {
			v = maxPageSize
		}
		pageSize = v
	}
	return page, pageSize, ""
}
