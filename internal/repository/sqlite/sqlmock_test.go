package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
)

// Failure paths the real database won't produce on demand are driven
// through sqlmock instead.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return newFromConn(conn), mock
}

var errDriver = errors.New("disk I/O error")

func TestUserGetByKakaoID_DriverError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE kakao_id = \?`).
		WithArgs("12345").
		WillReturnError(errDriver)

	_, err := db.Users().GetByKakaoID(context.Background(), "12345")
	assert.ErrorIs(t, err, errDriver)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpsert_DriverError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errDriver)

	err := db.Users().Upsert(context.Background(), &model.User{KakaoID: "1", Nickname: "a"})
	assert.ErrorIs(t, err, errDriver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeDelete_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_challenges`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM challenges`).
		WithArgs(int64(7)).
		WillReturnError(errDriver)
	mock.ExpectRollback()

	err := db.Challenges().Delete(context.Background(), 7)
	assert.ErrorIs(t, err, errDriver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeDelete_ConflictRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_challenges`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := db.Challenges().Delete(context.Background(), 7)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeList_PreviewQueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT c.id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "icon", "color", "bg_gradient",
			"duration", "difficulty", "created_at", "count",
		}).AddRow(1, "물", "", "Droplets", "c", "g", "21일", "쉬움", time.Now(), 2))
	mock.ExpectQuery(`ROW_NUMBER\(\)`).WillReturnError(errDriver)

	_, err := db.Challenges().List(context.Background(), 5)
	assert.ErrorIs(t, err, errDriver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressGet_CorruptDailyStatus(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM user_challenges`).
		WithArgs(int64(1), "u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "challenge_id", "daily_status", "start_date", "created_at", "updated_at",
		}).AddRow(1, "u1", 1, "not json", "2024-01-01", time.Now(), time.Now()))

	_, err := db.Progress().Get(context.Background(), 1, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding daily_status")
	assert.NoError(t, mock.ExpectationsWereMet())
}
