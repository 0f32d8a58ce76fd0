package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

var _ repository.ProgressRepository = (*ProgressDB)(nil)

// ProgressDB is the user_challenges table.
//
// STORAGE FORMAT:
//   - daily_status is a JSON array of 21 booleans, e.g. [true,false,...]
//   - start_date is TEXT "YYYY-MM-DD", so ORDER BY start_date sorts by day
type ProgressDB struct {
	conn *sql.DB
}

func encodeStatus(s model.DailyStatus) (string, error) {
	if s == nil {
		s = model.DailyStatus{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStatus(raw string) (model.DailyStatus, error) {
	var s model.DailyStatus
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the progress of userID in challengeID.
// Returns apperror.ErrNotFound if the user never saved any progress there.
func (p *ProgressDB) Get(ctx context.Context, challengeID int64, userID string) (*model.UserChallenge, error) {
	var (
		uc        model.UserChallenge
		rawStatus string
		rawStart  string
	)

	err := p.conn.QueryRowContext(ctx,
		`SELECT id, user_id, challenge_id, daily_status, start_date, created_at, updated_at
		 FROM user_challenges
		 WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID,
	).Scan(
		&uc.ID,
		&uc.UserID,
		&uc.ChallengeID,
		&rawStatus,
		&rawStart,
		&uc.CreatedAt,
		&uc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("사용자의 챌린지 기록을 찾을 수 없습니다.")
		}
		return nil, fmt.Errorf("sqlite: getting progress of %s in challenge %d: %w", userID, challengeID, err)
	}

	if uc.DailyStatus, err = decodeStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("sqlite: decoding daily_status of progress %d: %w", uc.ID, err)
	}
	if uc.StartDate, err = model.ParseDate(rawStart); err != nil {
		return nil, fmt.Errorf("sqlite: decoding start_date of progress %d: %w", uc.ID, err)
	}

	return &uc, nil
}

// Upsert saves progress keyed by (user_id, challenge_id).
//
// The UPDATE branch replaces daily_status wholesale and leaves start_date
// as first stored. Concurrent saves for the same pair resolve on the
// unique index: exactly one row, last write wins.
func (p *ProgressDB) Upsert(ctx context.Context, progress *model.UserChallenge) error {
	status, err := encodeStatus(progress.DailyStatus)
	if err != nil {
		return fmt.Errorf("sqlite: encoding daily_status: %w", err)
	}
	now := time.Now().UTC()

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO user_challenges (user_id, challenge_id, daily_status, start_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, challenge_id) DO UPDATE SET
			daily_status = excluded.daily_status,
			updated_at = excluded.updated_at`,
		progress.UserID,
		progress.ChallengeID,
		status,
		progress.StartDate.String(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting progress of %s in challenge %d: %w",
			progress.UserID, progress.ChallengeID, err)
	}

	stored, err := p.Get(ctx, progress.ChallengeID, progress.UserID)
	if err != nil {
		return err
	}
	*progress = *stored
	return nil
}

// ListByChallenge returns every enrolment in the challenge, in the order
// they were first saved. LEFT JOIN: a row whose user is missing still comes
// back, with nil Nickname and ProfilePictureURL.
func (p *ProgressDB) ListByChallenge(ctx context.Context, challengeID int64) ([]model.ParticipantProgress, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT uc.user_id, uc.daily_status, u.nickname, u.profile_picture_url
		 FROM user_challenges uc
		 LEFT JOIN users u ON u.kakao_id = uc.user_id
		 WHERE uc.challenge_id = ?
		 ORDER BY uc.id ASC`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing progress of challenge %d: %w", challengeID, err)
	}
	defer rows.Close()

	entries := []model.ParticipantProgress{}
	for rows.Next() {
		var (
			e         model.ParticipantProgress
			rawStatus string
		)
		if err := rows.Scan(&e.UserID, &rawStatus, &e.Nickname, &e.ProfilePictureURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning progress row: %w", err)
		}
		if e.DailyStatus, err = decodeStatus(rawStatus); err != nil {
			return nil, fmt.Errorf("sqlite: decoding daily_status of %s: %w", e.UserID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating progress rows: %w", err)
	}

	return entries, nil
}

// Participants returns the enrolled users of a challenge by nickname.
func (p *ProgressDB) Participants(ctx context.Context, challengeID int64) ([]model.Participant, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT u.nickname, u.profile_picture_url
		 FROM user_challenges uc
		 JOIN users u ON u.kakao_id = uc.user_id
		 WHERE uc.challenge_id = ?
		 ORDER BY u.nickname ASC, uc.id ASC`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing participants of challenge %d: %w", challengeID, err)
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		var pt model.Participant
		if err := rows.Scan(&pt.Nickname, &pt.ProfilePictureURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning participant row: %w", err)
		}
		participants = append(participants, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating participant rows: %w", err)
	}

	return participants, nil
}
