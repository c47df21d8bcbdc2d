package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"bookhub/internal/entity"
	"bookhub/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthorRepo struct {
	mock.Mock
}

func (m *mockAuthorRepo) Create(ctx context.Context, a *entity.Author) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAuthorRepo) List(ctx context.Context) ([]entity.Author, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Author), args.Error(1)
}

func (m *mockAuthorRepo) GetByID(ctx context.Context, id int64) (entity.Author, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Author), args.Error(1)
}

func (m *mockAuthorRepo) Update(ctx context.Context, a *entity.Author) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAuthorRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBookRepo struct {
	mock.Mock
	nextID int64
}

func (m *mockBookRepo) Create(ctx context.Context, b *entity.Book) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		m.nextID++
		b.ID = m.nextID
	}
	return args.Error(0)
}

func (m *mockBookRepo) GetByID(ctx context.Context, id int64) (entity.Book, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Book), args.Error(1)
}

func (m *mockBookRepo) Search(ctx context.Context, p usecase.SearchParams) ([]entity.Book, int, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]entity.Book), args.Int(1), args.Error(2)
}

func (m *mockBookRepo) Update(ctx context.Context, b *entity.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func validAuthor(id int64) entity.Author {
	return entity.Author{ID: id, Name: "Jane", Surname: "Doe", BirthDate: time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestImport_JSONPartialSuccess(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	// Row 3 references a missing author; every other row is fine.
	payload := `[
		{"title": "Book One", "published_year": 1990, "genre": "Fiction", "author_id": 1},
		{"title": "Book Two", "published_year": 1991, "genre": "Science", "author_id": 1},
		{"title": "Book Three", "published_year": 1992, "genre": "History", "author_id": 99},
		{"title": "Book Four", "published_year": 1993, "genre": "Non-Fiction", "author_id": 1},
		{"title": "Book Five", "published_year": 1994, "genre": "Fiction", "author_id": 1}
	]`

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	authors.On("GetByID", mock.Anything, int64(99)).Return(entity.Author{}, usecase.ErrNotFound)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalRows)
	require.Len(t, report.Succeeded, 4)
	require.Len(t, report.Failed, 1)

	assert.Equal(t, 3, report.Failed[0].Row)
	assert.Equal(t, ReasonAuthorNotFound, report.Failed[0].Reason)

	// Succeeded rows keep input order.
	assert.Equal(t, []int{1, 2, 4, 5}, []int{
		report.Succeeded[0].Row, report.Succeeded[1].Row,
		report.Succeeded[2].Row, report.Succeeded[3].Row,
	})
	books.AssertNumberOfCalls(t, "Create", 4)
}

func TestImport_CSV(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	payload := "title,published_year,genre,author_id\n" +
		"First Book,1985,Fiction,1\n" +
		"Second Book,2001,Science,1\n"

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Len(t, report.Succeeded, 2)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "First Book", report.Succeeded[0].Title)
}

func TestImport_CSVWithCharsetParam(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	payload := "title,published_year,genre,author_id\nA Book,1985,Fiction,1\n"

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Len(t, report.Succeeded, 1)
}

func TestImport_MalformedCSVHeader(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	// Unclosed quote makes the header unparseable.
	payload := "\"title,published_year,genre,author_id\nA Book,1985,Fiction,1\n"

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "text/csv")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, report)
	books.AssertNotCalled(t, "Create")
}

func TestImport_MissingCSVColumn(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	payload := "title,genre,author_id\nA Book,Fiction,1\n"

	_, err := svc.Import(context.Background(), strings.NewReader(payload), "text/csv")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	books.AssertNotCalled(t, "Create")
}

func TestImport_MalformedJSON(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	_, err := svc.Import(context.Background(), strings.NewReader(`{"not": "an array"`), "application/json")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	books.AssertNotCalled(t, "Create")
}

func TestImport_UnsupportedContentType(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	_, err := svc.Import(context.Background(), strings.NewReader("whatever"), "application/xml")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestImport_SchemaViolations(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	payload := `[
		{"title": "", "published_year": 1990, "genre": "Fiction", "author_id": 1},
		{"title": "Too Old", "published_year": 1500, "genre": "Fiction", "author_id": 1},
		{"title": "Bad Genre", "published_year": 1990, "genre": "Poetry", "author_id": 1},
		{"title": "Fine", "published_year": 1990, "genre": "Fiction", "author_id": 1}
	]`

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalRows)
	require.Len(t, report.Failed, 3)
	require.Len(t, report.Succeeded, 1)

	for _, f := range report.Failed {
		assert.Equal(t, ReasonSchemaViolation, f.Reason)
		assert.NotEmpty(t, f.Detail)
	}
	assert.Contains(t, report.Failed[0].Detail, "title is required")
	assert.Contains(t, report.Failed[1].Detail, "published_year")
	assert.Contains(t, report.Failed[2].Detail, "genre")
	assert.Equal(t, 4, report.Succeeded[0].Row)
}

func TestImport_FutureYearRejected(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	payload := fmt.Sprintf(`[{"title": "From the Future", "published_year": %d, "genre": "Fiction", "author_id": 1}]`,
		time.Now().Year()+1)

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, ReasonSchemaViolation, report.Failed[0].Reason)
	books.AssertNotCalled(t, "Create")
}

func TestImport_CSVNonNumericFields(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	payload := "title,published_year,genre,author_id\n" +
		"A Book,not-a-year,Fiction,1\n" +
		"B Book,1990,Fiction,not-an-id\n"

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "text/csv")
	require.NoError(t, err)

	require.Len(t, report.Failed, 2)
	assert.Equal(t, "published_year must be an integer", report.Failed[0].Detail)
	assert.Equal(t, "author_id must be an integer", report.Failed[1].Detail)
	books.AssertNotCalled(t, "Create")
}

func TestImport_WrongTypeJSONRow(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	payload := `[
		{"title": "Good", "published_year": 1990, "genre": "Fiction", "author_id": 1},
		{"title": "Bad", "published_year": "nineteen-ninety", "genre": "Fiction", "author_id": 1}
	]`

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 1)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Row)
	assert.Equal(t, ReasonSchemaViolation, report.Failed[0].Reason)
}

func TestImport_InsertConflict(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	authors.On("GetByID", mock.Anything, int64(1)).Return(validAuthor(1), nil)
	books.On("Create", mock.Anything, mock.MatchedBy(func(b *entity.Book) bool {
		return b.Title == "Duplicate"
	})).Return(usecase.ErrAlreadyExists)
	books.On("Create", mock.Anything, mock.Anything).Return(nil)

	payload := `[
		{"title": "Fresh", "published_year": 1990, "genre": "Fiction", "author_id": 1},
		{"title": "Duplicate", "published_year": 1991, "genre": "Fiction", "author_id": 1}
	]`

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 1)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Row)
	assert.Equal(t, ReasonPersistenceConflict, report.Failed[0].Reason)
}

func TestImport_StorageFailureAborts(t *testing.T) {
	authors := new(mockAuthorRepo)
	books := new(mockBookRepo)
	svc := NewService(authors, books)

	authors.On("GetByID", mock.Anything, int64(1)).Return(entity.Author{}, errors.New("connection refused"))

	payload := `[{"title": "A Book", "published_year": 1990, "genre": "Fiction", "author_id": 1}]`

	report, err := svc.Import(context.Background(), strings.NewReader(payload), "application/json")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, report)
}
