// Package repository declares the persistence contracts the service layer
// depends on. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/challenge-tracker/internal/model"
)

// PreviewSize is how many recent participants a catalogue listing carries
// per challenge.
const PreviewSize = 5

type UserRepository interface {
	// Upsert inserts the user or overwrites email, nickname and avatar of
	// the row with the same KakaoID. The stored row is copied back into user.
	Upsert(ctx context.Context, user *model.User) error
	GetByKakaoID(ctx context.Context, kakaoID string) (*model.User, error)
	// EnsureExists inserts user only if no row has its KakaoID and reports
	// whether it inserted.
	EnsureExists(ctx context.Context, user *model.User) (bool, error)
}

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *model.Challenge) error
	GetByID(ctx context.Context, id int64) (*model.ChallengeSummary, error)
	List(ctx context.Context, previewSize int) ([]model.ChallengeSummary, error)
	// Update writes Title and Description only.
	Update(ctx context.Context, challenge *model.Challenge) error
	Delete(ctx context.Context, id int64) error
	// EnsureExists inserts challenge under its own ID if that ID is free and
	// reports whether it inserted.
	EnsureExists(ctx context.Context, challenge *model.Challenge) (bool, error)
}

type ProgressRepository interface {
	Get(ctx context.Context, challengeID int64, userID string) (*model.UserChallenge, error)
	// Upsert inserts progress, or replaces DailyStatus of the existing
	// (UserID, ChallengeID) row keeping its StartDate. The stored row is
	// copied back into progress.
	Upsert(ctx context.Context, progress *model.UserChallenge) error
	// ListByChallenge returns every progress row of the challenge joined to
	// its user, in insertion order.
	ListByChallenge(ctx context.Context, challengeID int64) ([]model.ParticipantProgress, error)
	// Participants returns the users enrolled in the challenge, ordered by
	// nickname.
	Participants(ctx context.Context, challengeID int64) ([]model.Participant, error)
}
