package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `kakao_id, email, nickname, profile_picture_url, created_at, updated_at`

// Upsert inserts a user or refreshes the profile of an existing one.
//
// ON CONFLICT ... DO UPDATE:
// One statement, so two concurrent logins for the same Kakao account can't
// both try to INSERT. created_at is only written by the INSERT branch; the
// UPDATE branch overwrites just the profile fields and updated_at.
//
// Email and ProfilePictureURL are *string: a nil pointer is bound as NULL.
// A returning user who withdrew email consent therefore has it cleared.
func (u *UserDB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(kakao_id) DO UPDATE SET
			email = excluded.email,
			nickname = excluded.nickname,
			profile_picture_url = excluded.profile_picture_url,
			updated_at = excluded.updated_at`,
		user.KakaoID,
		user.Email,
		user.Nickname,
		user.ProfilePictureURL,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("이미 다른 계정에서 사용 중인 이메일입니다.")
		}
		return fmt.Errorf("sqlite: upserting user %s: %w", user.KakaoID, err)
	}

	stored, err := u.GetByKakaoID(ctx, user.KakaoID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetByKakaoID retrieves a user by their Kakao id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (u *UserDB) GetByKakaoID(ctx context.Context, kakaoID string) (*model.User, error) {
	var user model.User

	err := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE kakao_id = ?`,
		kakaoID,
	).Scan(
		&user.KakaoID,
		&user.Email,
		&user.Nickname,
		&user.ProfilePictureURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("사용자를 찾을 수 없습니다.")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", kakaoID, err)
	}

	return &user, nil
}

// EnsureExists inserts the user unless the Kakao id is taken.
//
// DO NOTHING leaves an existing row untouched, and RowsAffected tells us
// which branch ran.
func (u *UserDB) EnsureExists(ctx context.Context, user *model.User) (bool, error) {
	now := time.Now().UTC()

	res, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(kakao_id) DO NOTHING`,
		user.KakaoID,
		user.Email,
		user.Nickname,
		user.ProfilePictureURL,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: ensuring user %s: %w", user.KakaoID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
