package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	selectQ = `(?s)^\s*SELECT\s+id,\s*user_id,\s*token,\s*expires_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	deleteQ = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	expires := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(insertQ).
		WithArgs(int64(1), "tok123", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), 1, "tok123", expires))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Errors(t *testing.T) {
	t.Run("duplicate token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "refresh_tokens_token_key"})

		err := repo.Create(context.Background(), 1, "tok123", time.Now())
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("db down", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

		err := repo.Create(context.Background(), 1, "tok123", time.Now())
		if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})
}

func TestFind(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		expires := time.Now().Add(10 * time.Minute)
		mock.ExpectQuery(selectQ).
			WithArgs("tok123").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
				AddRow(int64(3), int64(1), "tok123", expires))

		got, err := repo.Find(context.Background(), "tok123")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, int64(1), got.UserID)
		assert.Equal(t, "tok123", got.Token)
		assert.True(t, got.ExpiresAt.Equal(expires))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(selectQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.Find(context.Background(), "missing")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(selectQ).WithArgs("tok123").WillReturnError(errors.New("db err"))

		_, err := repo.Find(context.Background(), "tok123")
		require.Error(t, err)
		assert.Regexp(t, `db error: .*db err`, err.Error())
	})
}

func TestDelete(t *testing.T) {
	t.Run("row removed", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := repo.Delete(context.Background(), "tok123")
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("nothing to remove is not an error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := repo.Delete(context.Background(), "gone")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnError(errors.New("db err"))

		_, err := repo.Delete(context.Background(), "tok123")
		require.Error(t, err)
		assert.Regexp(t, `db error: .*db err`, err.Error())
	})
}
