package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

func newTermRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func termRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "academic_year", "start_date", "end_date", "is_current", "created_at", "updated_at"}).
		AddRow("term-1", "Fall", "2026/2027", now, now.AddDate(0, 4, 0), true, now, now)
}

func TestTermRepositoryFindCurrent(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM terms WHERE is_current = TRUE LIMIT 1")).
		WillReturnRows(termRows())

	term, err := repo.FindCurrent(context.Background())
	require.NoError(t, err)
	require.Equal(t, "term-1", term.ID)
	require.True(t, term.IsCurrent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryFindCurrentClosed(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM terms WHERE is_current = TRUE LIMIT 1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindCurrent(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositorySetCurrent(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "term-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_current = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("term-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "term-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryList(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM terms WHERE 1=1 AND academic_year = $1 ORDER BY start_date DESC")).
		WithArgs("2026/2027").
		WillReturnRows(termRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM terms WHERE 1=1 AND academic_year = $1")).
		WithArgs("2026/2027").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	terms, total, err := repo.List(context.Background(), models.TermFilter{AcademicYear: "2026/2027"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
