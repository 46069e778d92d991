package principals

import (
	"alumni-network/app/server/models"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T, matcher ...sqlmock.QueryMatcher) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	m := sqlmock.QueryMatcherRegexp
	if len(matcher) > 0 {
		m = matcher[0]
	}

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return db, mock
}

var memberColumns = []string{"id", "created_at", "updated_at", "email", "username", "name", "role", "password", "refresh_token"}

func TestGormStore_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Member](db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "members" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(memberColumns).
			AddRow(id.String(), now, now, "alice@example.com", "alice", "Alice", "student", "hash", "refresh"))

	p, err := s.FindByEmail(context.Background(), " Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, p.PrincipalID())
	assert.Equal(t, models.RoleStudent, p.PrincipalRole())
	assert.Equal(t, "hash", p.Credentials().Password)
	require.NotNil(t, p.Credentials().RefreshToken)
	assert.Equal(t, "refresh", *p.Credentials().RefreshToken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Admin](db)

	mock.ExpectQuery(`SELECT \* FROM "admins" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FindByID_Error(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Admin](db)

	mock.ExpectQuery(`SELECT \* FROM "admins"`).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Member](db)

	mock.ExpectExec(`INSERT INTO "members"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.Create(context.Background(), &models.Member{Email: "alice@example.com", Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Admin](db)

	mock.ExpectExec(`INSERT INTO "admins"`).WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.Admin{Email: "root@example.com"}
	require.NoError(t, s.Create(context.Background(), a))
	assert.NotEqual(t, uuid.Nil, a.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateProfileNeverWritesCredentials(t *testing.T) {
	var statements []string
	matcher := sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
		statements = append(statements, actualSQL)
		return sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL)
	})
	db, mock := newMockDB(t, matcher)
	s := NewGormStore[models.Member](db)

	mock.ExpectExec(`UPDATE "members" SET .*"bio".* WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := &models.Member{ID: uuid.New(), Email: "alice@example.com", Username: "alice", Bio: ""}
	m.Password = "should-not-be-written"
	require.NoError(t, s.UpdateProfile(context.Background(), m))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, statements, 1)
	for _, column := range models.CredentialColumns {
		assert.NotContains(t, statements[0], `"`+column+`"`)
	}
	assert.NotContains(t, statements[0], `"created_at"`)
}

func TestGormStore_UpdateProfileNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Admin](db)

	mock.ExpectExec(`UPDATE "admins"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProfile(context.Background(), &models.Admin{ID: uuid.New(), Email: "root@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SwapRefreshToken(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Member](db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "members" SET .*"refresh_token"=.* WHERE id = \$\d+ AND refresh_token = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "members" SET .*"refresh_token"=.* WHERE id = \$\d+ AND refresh_token = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	swapped, err := s.SwapRefreshToken(context.Background(), id, "old", "next")
	require.NoError(t, err)
	assert.True(t, swapped)

	// 并发的另一个请求看到的已经不是 old 了
	swapped, err = s.SwapRefreshToken(context.Background(), id, "old", "other")
	require.NoError(t, err)
	assert.False(t, swapped)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SetRefreshTokenClears(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Admin](db)

	mock.ExpectExec(`UPDATE "admins" SET .*"refresh_token"=\$\d+.* WHERE id = \$\d+`).
		WithArgs(nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "admins"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.SetRefreshToken(context.Background(), uuid.New(), nil))
	assert.ErrorIs(t, s.SetRefreshToken(context.Background(), uuid.New(), nil), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReplacePasswordClearsOTP(t *testing.T) {
	var statement string
	matcher := sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
		statement = actualSQL
		return sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL)
	})
	db, mock := newMockDB(t, matcher)
	s := NewGormStore[models.Member](db)

	mock.ExpectExec(`UPDATE "members" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ReplacePassword(context.Background(), uuid.New(), "new-hash"))
	require.NoError(t, mock.ExpectationsWereMet())

	for _, column := range []string{`"password"`, `"reset_otp"`, `"reset_otp_expires"`} {
		assert.True(t, strings.Contains(statement, column), column)
	}
}

func TestGormStore_ListAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore[models.Member](db)
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "members" ORDER BY created_at ASC LIMIT .* OFFSET .*`).
		WillReturnRows(sqlmock.NewRows(memberColumns).
			AddRow(uuid.NewString(), now, now, "b@example.com", "b", "", "alumni", "hash", nil))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "members"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM "members" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	list, count, err := s.List(context.Background(), false, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.Len(t, list, 1)
	assert.Equal(t, "b@example.com", list[0].PrincipalEmail())
	assert.Nil(t, list[0].Credentials().RefreshToken)

	assert.ErrorIs(t, s.Delete(context.Background(), uuid.New()), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RejectsOtherKind(t *testing.T) {
	db, mock := newMockDB(t)
	members := NewGormStore[models.Member](db)
	admins := NewGormStore[models.Admin](db)

	assert.ErrorIs(t, members.Create(context.Background(), &models.Admin{}), ErrKind)
	assert.ErrorIs(t, admins.UpdateProfile(context.Background(), &models.Member{ID: uuid.New()}), ErrKind)

	// 类型不匹配时不会发出任何语句
	require.NoError(t, mock.ExpectationsWereMet())
}
