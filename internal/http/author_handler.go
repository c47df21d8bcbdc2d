package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"
)

type AuthorHandler struct {
	authors usecase.AuthorRepository
}

func NewAuthorHandler(authors usecase.AuthorRepository) *AuthorHandler {
	return &AuthorHandler{authors: authors}
}

type createAuthorReq struct {
	Name      string `json:"name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	BirthDate string `json:"birth_date" validate:"required"`
	Biography string `json:"biography" validate:"max=2000"`
}

// parseBirthDate enforces YYYY-MM-DD and the 1700..current-year window.
func parseBirthDate(s string) (time.Time, *ErrorDetail) {
	birthDate, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &ErrorDetail{Field: "birth_date", Message: "birth_date must be in format YYYY-MM-DD"}
	}
	currentYear := time.Now().Year()
	if birthDate.Year() < 1700 || birthDate.Year() > currentYear {
		return time.Time{}, &ErrorDetail{
			Field:   "birth_date",
			Message: fmt.Sprintf("birth_date must be between 1700 and %d", currentYear),
		}
	}
	return birthDate, nil
}

func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAuthorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)

	details := ValidateStruct(req)
	var birthDate time.Time
	if req.BirthDate != "" {
		parsed, detail := parseBirthDate(req.BirthDate)
		if detail != nil {
			details = append(details, *detail)
		}
		birthDate = parsed
	}
	if len(details) > 0 {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", details)
		return
	}

	author := &entity.Author{
		Name:      req.Name,
		Surname:   req.Surname,
		BirthDate: birthDate,
		Biography: req.Biography,
	}
	if err := h.authors.Create(r.Context(), author); err != nil {
		if errors.Is(err, usecase.ErrAlreadyExists) {
			JSONError(w, http.StatusConflict, CodePersistenceConflict, "Author already exists", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccessCreated(w, author)
}

func (h *AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	authors, err := h.authors.List(r.Context())
	if err != nil {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}
	if authors == nil {
		authors = []entity.Author{}
	}
	JSONSuccess(w, map[string]any{"authors": authors}, nil)
}

func (h *AuthorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
		return
	}

	author, err := h.authors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccess(w, author, nil)
}

type updateAuthorReq struct {
	Name      *string `json:"name"`
	Surname   *string `json:"surname"`
	BirthDate *string `json:"birth_date"`
	Biography *string `json:"biography"`
}

func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
		return
	}

	var req updateAuthorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}

	author, err := h.authors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	if req.Name != nil {
		author.Name = strings.TrimSpace(*req.Name)
	}
	if req.Surname != nil {
		author.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.BirthDate != nil {
		parsed, detail := parseBirthDate(*req.BirthDate)
		if detail != nil {
			JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", []ErrorDetail{*detail})
			return
		}
		author.BirthDate = parsed
	}
	if req.Biography != nil {
		author.Biography = *req.Biography
	}

	if author.Name == "" || author.Surname == "" {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", []ErrorDetail{
			{Field: "name", Message: "name and surname must not be empty"},
		})
		return
	}

	if err := h.authors.Update(r.Context(), &author); err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
		case errors.Is(err, usecase.ErrAlreadyExists):
			JSONError(w, http.StatusConflict, CodePersistenceConflict, "Author already exists", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}

	JSONSuccess(w, author, nil)
}

func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
		return
	}

	if err := h.authors.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			JSONError(w, http.StatusNotFound, CodeNotFound, "Author not found", nil)
		case errors.Is(err, usecase.ErrConflict):
			JSONError(w, http.StatusConflict, CodePersistenceConflict, "Author still has books", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}

	JSONSuccessNoContent(w)
}
