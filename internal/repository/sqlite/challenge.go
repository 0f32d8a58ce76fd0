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

var _ repository.ChallengeRepository = (*ChallengeDB)(nil)

// ChallengeDB is the challenges table.
type ChallengeDB struct {
	conn *sql.DB
}

const errChallengeNotFound = "챌린지를 찾을 수 없습니다."

// Participant count rides along as a correlated subquery so a single
// statement returns the whole summary.
const challengeSummarySelect = `
	SELECT c.id, c.title, c.description, c.icon, c.color, c.bg_gradient,
	       c.duration, c.difficulty, c.created_at,
	       (SELECT COUNT(*) FROM user_challenges uc WHERE uc.challenge_id = c.id)
	FROM challenges c`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*model.ChallengeSummary, error) {
	var s model.ChallengeSummary
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.Icon,
		&s.Color,
		&s.BgGradient,
		&s.Duration,
		&s.Difficulty,
		&s.CreatedAt,
		&s.ParticipantCount,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new challenge. SQLite assigns the id; it is copied back
// into challenge along with CreatedAt.
func (c *ChallengeDB) Create(ctx context.Context, challenge *model.Challenge) error {
	challenge.CreatedAt = time.Now().UTC()

	res, err := c.conn.ExecContext(ctx,
		`INSERT INTO challenges (title, description, icon, color, bg_gradient, duration, difficulty, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		challenge.Title,
		challenge.Description,
		challenge.Icon,
		challenge.Color,
		challenge.BgGradient,
		challenge.Duration,
		challenge.Difficulty,
		challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating challenge: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading challenge id: %w", err)
	}
	challenge.ID = id
	return nil
}

// GetByID returns the challenge with its participant count.
// Returns apperror.ErrNotFound if no challenge has that id.
func (c *ChallengeDB) GetByID(ctx context.Context, id int64) (*model.ChallengeSummary, error) {
	row := c.conn.QueryRowContext(ctx, challengeSummarySelect+` WHERE c.id = ?`, id)

	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(errChallengeNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %d: %w", id, err)
	}
	return s, nil
}

// List returns every challenge ordered by id, each with its participant
// count and up to previewSize of its most recently started participants.
//
// TWO QUERIES, NOT N+1:
// The first reads all challenges. The second ranks each challenge's
// enrolments with ROW_NUMBER() and keeps the top previewSize per partition,
// so the preview for every challenge arrives in one round trip.
func (c *ChallengeDB) List(ctx context.Context, previewSize int) ([]model.ChallengeSummary, error) {
	rows, err := c.conn.QueryContext(ctx, challengeSummarySelect+` ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing challenges: %w", err)
	}

	summaries := []model.ChallengeSummary{}
	index := make(map[int64]int)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning challenge row: %w", err)
		}
		index[s.ID] = len(summaries)
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating challenge rows: %w", err)
	}
	rows.Close()

	if previewSize <= 0 || len(summaries) == 0 {
		return summaries, nil
	}

	previews, err := c.conn.QueryContext(ctx,
		`SELECT challenge_id, nickname, profile_picture_url FROM (
			SELECT uc.challenge_id, u.nickname, u.profile_picture_url,
			       ROW_NUMBER() OVER (
			           PARTITION BY uc.challenge_id
			           ORDER BY uc.start_date DESC, uc.id DESC
			       ) AS rn
			FROM user_challenges uc
			JOIN users u ON u.kakao_id = uc.user_id
		 )
		 WHERE rn <= ?
		 ORDER BY challenge_id, rn`,
		previewSize,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing participant previews: %w", err)
	}
	defer previews.Close()

	for previews.Next() {
		var (
			challengeID int64
			p           model.Participant
		)
		if err := previews.Scan(&challengeID, &p.Nickname, &p.ProfilePictureURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning preview row: %w", err)
		}
		if i, ok := index[challengeID]; ok {
			summaries[i].Preview = append(summaries[i].Preview, p)
		}
	}
	if err := previews.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating preview rows: %w", err)
	}

	return summaries, nil
}

// Update writes the challenge's title and description. The cosmetic
// columns are never touched after creation.
// Returns apperror.ErrNotFound if no challenge has that id.
func (c *ChallengeDB) Update(ctx context.Context, challenge *model.Challenge) error {
	res, err := c.conn.ExecContext(ctx,
		`UPDATE challenges SET title = ?, description = ? WHERE id = ?`,
		challenge.Title,
		challenge.Description,
		challenge.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating challenge %d: %w", challenge.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(errChallengeNotFound)
	}
	return nil
}

// Delete removes a challenge that nobody is enrolled in.
//
// The count and the delete share a transaction so a progress row can't
// slip in between them. A challenge with enrolments yields
// apperror.ErrConflict; an unknown id yields apperror.ErrNotFound.
func (c *ChallengeDB) Delete(ctx context.Context, id int64) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of challenge %d: %w", id, err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	var enrolled int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_challenges WHERE challenge_id = ?`, id,
	).Scan(&enrolled)
	if err != nil {
		return fmt.Errorf("sqlite: counting enrolments of challenge %d: %w", id, err)
	}
	if enrolled > 0 {
		return apperror.Conflict("참여 기록이 있는 챌린지는 삭제할 수 없습니다.")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting challenge %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(errChallengeNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of challenge %d: %w", id, err)
	}
	return nil
}

// EnsureExists inserts challenge under challenge.ID unless that id is taken,
// and reports whether it inserted.
func (c *ChallengeDB) EnsureExists(ctx context.Context, challenge *model.Challenge) (bool, error) {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now().UTC()
	}

	res, err := c.conn.ExecContext(ctx,
		`INSERT INTO challenges (id, title, description, icon, color, bg_gradient, duration, difficulty, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		challenge.ID,
		challenge.Title,
		challenge.Description,
		challenge.Icon,
		challenge.Color,
		challenge.BgGradient,
		challenge.Duration,
		challenge.Difficulty,
		challenge.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: ensuring challenge %d: %w", challenge.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
