package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedPayload means the payload could not be parsed into rows at
// all; nothing is persisted in that case.
var ErrMalformedPayload = errors.New("malformed payload")

const (
	ReasonSchemaViolation     = "SCHEMA_VIOLATION"
	ReasonAuthorNotFound      = "AUTHOR_NOT_FOUND"
	ReasonPersistenceConflict = "PERSISTENCE_CONFLICT"
)

// Row is one candidate book record parsed from the payload.
type Row struct {
	Title         string `json:"title" validate:"required"`
	PublishedYear int    `json:"published_year" validate:"required,gte=1800,past_or_present_year"`
	Genre         string `json:"genre" validate:"required,oneof=Fiction Non-Fiction Science History"`
	AuthorID      int64  `json:"author_id" validate:"required,gt=0"`
}

type CreatedBook struct {
	Row   int    `json:"row"`
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type FailedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Report lists, in input row order, which rows were persisted and which
// failed and why. Rows are numbered from 1.
type Report struct {
	TotalRows int           `json:"total_rows"`
	Succeeded []CreatedBook `json:"succeeded"`
	Failed    []FailedRow   `json:"failed"`
}

// candidate carries a parsed row or its parse-phase failure.
type candidate struct {
	row     Row
	failure *FailedRow
}

type Service struct {
	authors  usecase.AuthorRepository
	books    usecase.BookRepository
	validate *validator.Validate
}

func NewService(authors usecase.AuthorRepository, books usecase.BookRepository) *Service {
	v := validator.New()
	_ = v.RegisterValidation("past_or_present_year", func(fl validator.FieldLevel) bool {
		return int(fl.Field().Int()) <= time.Now().Year()
	})
	return &Service{authors: authors, books: books, validate: v}
}

// Import parses the payload selected by contentType ("text/csv" or
// "application/json") and inserts as many rows as possible. The payload is
// parsed completely before any row is processed, so a structural failure
// never leaves partial state. Rows are processed sequentially and
// independently; each insert is its own unit of work and earlier inserts
// are never rolled back.
//
// Author references are resolved by numeric ID only; author names are not
// accepted as a fallback.
func (s *Service) Import(ctx context.Context, body io.Reader, contentType string) (*Report, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: bad content type: %v", ErrMalformedPayload, err)
	}

	var candidates []candidate
	switch mediaType {
	case "text/csv":
		candidates, err = parseCSV(body)
	case "application/json":
		candidates, err = parseJSON(body)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrMalformedPayload, mediaType)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{
		TotalRows: len(candidates),
		Succeeded: []CreatedBook{},
		Failed:    []FailedRow{},
	}

	for i, c := range candidates {
		rowNum := i + 1

		if c.failure != nil {
			c.failure.Row = rowNum
			report.Failed = append(report.Failed, *c.failure)
			continue
		}

		if detail := s.validateRow(c.row); detail != "" {
			report.Failed = append(report.Failed, FailedRow{Row: rowNum, Reason: ReasonSchemaViolation, Detail: detail})
			continue
		}

		if _, err := s.authors.GetByID(ctx, c.row.AuthorID); err != nil {
			if errors.Is(err, usecase.ErrNotFound) {
				report.Failed = append(report.Failed, FailedRow{
					Row:    rowNum,
					Reason: ReasonAuthorNotFound,
					Detail: fmt.Sprintf("author %d does not exist", c.row.AuthorID),
				})
				continue
			}
			return nil, err
		}

		book := &entity.Book{
			Title:         c.row.Title,
			AuthorID:      c.row.AuthorID,
			PublishedYear: c.row.PublishedYear,
			Genre:         c.row.Genre,
		}
		if err := s.books.Create(ctx, book); err != nil {
			switch {
			case errors.Is(err, usecase.ErrAlreadyExists), errors.Is(err, usecase.ErrConflict):
				report.Failed = append(report.Failed, FailedRow{
					Row:    rowNum,
					Reason: ReasonPersistenceConflict,
					Detail: fmt.Sprintf("book %q already exists", c.row.Title),
				})
			case errors.Is(err, usecase.ErrAuthorNotFound):
				// The author vanished between the existence check and the insert.
				report.Failed = append(report.Failed, FailedRow{
					Row:    rowNum,
					Reason: ReasonAuthorNotFound,
					Detail: fmt.Sprintf("author %d does not exist", c.row.AuthorID),
				})
			default:
				return nil, err
			}
			continue
		}

		report.Succeeded = append(report.Succeeded, CreatedBook{Row: rowNum, ID: book.ID, Title: book.Title})
	}

	return report, nil
}

func (s *Service) validateRow(row Row) string {
	err := s.validate.Struct(row)
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "invalid row"
	}

	details := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		field := jsonFieldName(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "gte", "past_or_present_year":
			details = append(details, fmt.Sprintf("%s must be between 1800 and %d", field, time.Now().Year()))
		case "gt":
			details = append(details, fmt.Sprintf("%s must be positive", field))
		case "oneof":
			details = append(details, fmt.Sprintf("%s must be one of: Fiction, Non-Fiction, Science, History", field))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(details, "; ")
}

func jsonFieldName(field string) string {
	switch field {
	case "Title":
		return "title"
	case "PublishedYear":
		return "published_year"
	case "Genre":
		return "genre"
	case "AuthorID":
		return "author_id"
	}
	return field
}

var csvColumns = []string{"title", "published_year", "genre", "author_id"}

func parseCSV(body io.Reader) ([]candidate, error) {
	reader := csv.NewReader(body)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable CSV header: %v", ErrMalformedPayload, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing CSV column %q", ErrMalformedPayload, col)
		}
	}

	var out []candidate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				out = append(out, candidate{failure: &FailedRow{
					Reason: ReasonSchemaViolation,
					Detail: "wrong number of fields",
				}})
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out = append(out, csvRecordToCandidate(record, idx))
	}
	return out, nil
}

func csvRecordToCandidate(record []string, idx map[string]int) candidate {
	row := Row{
		Title: strings.TrimSpace(record[idx["title"]]),
		Genre: strings.TrimSpace(record[idx["genre"]]),
	}

	year, err := strconv.Atoi(strings.TrimSpace(record[idx["published_year"]]))
	if err != nil {
		return candidate{failure: &FailedRow{
			Reason: ReasonSchemaViolation,
			Detail: "published_year must be an integer",
		}}
	}
	row.PublishedYear = year

	authorID, err := strconv.ParseInt(strings.TrimSpace(record[idx["author_id"]]), 10, 64)
	if err != nil {
		return candidate{failure: &FailedRow{
			Reason: ReasonSchemaViolation,
			Detail: "author_id must be an integer",
		}}
	}
	row.AuthorID = authorID

	return candidate{row: row}
}

func parseJSON(body io.Reader) ([]candidate, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := make([]candidate, 0, len(raws))
	for _, raw := range raws {
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			out = append(out, candidate{failure: &FailedRow{
				Reason: ReasonSchemaViolation,
				Detail: err.Error(),
			}})
			continue
		}
		out = append(out, candidate{row: row})
	}
	return out, nil
}
