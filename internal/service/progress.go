package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// UpdateStatusInput is one save of a user's 21-day grid.
// StartDate is a pointer so "absent" and "zero" can be told apart.
type UpdateStatusInput struct {
	ChallengeID int64
	UserID      string
	DailyStatus model.DailyStatus
	StartDate   *model.Date
}

// ProgressService tracks per-user daily completion.
//
// "Today" is the calendar day in loc at the time now() returns; tests
// replace now to pin the date.
type ProgressService struct {
	challenges repository.ChallengeRepository
	users      repository.UserRepository
	progress   repository.ProgressRepository
	now        func() time.Time
	loc        *time.Location
	logger     *slog.Logger
}

func NewProgressService(
	challenges repository.ChallengeRepository,
	users repository.UserRepository,
	progress repository.ProgressRepository,
	loc *time.Location,
	logger *slog.Logger,
) *ProgressService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressService{
		challenges: challenges,
		users:      users,
		progress:   progress,
		now:        time.Now,
		loc:        loc,
		logger:     logger,
	}
}

// Today returns the current calendar day in the service's time zone.
func (s *ProgressService) Today() model.Date {
	return model.DateOf(s.now(), s.loc)
}

// GetStatus returns the user's saved progress in a challenge.
// A user with no record gets apperror.ErrNotFound, never an empty grid.
func (s *ProgressService) GetStatus(ctx context.Context, challengeID int64, userID string) (*model.UserChallenge, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId가 필요합니다.")
	}
	uc, err := s.progress.Get(ctx, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("service: getting status of %s in challenge %d: %w", userID, challengeID, err)
	}
	return uc, nil
}

// EnsureChallenge creates the placeholder challenge for id unless a
// challenge with that id exists, and reports whether it created one.
func (s *ProgressService) EnsureChallenge(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, apperror.ValidationFailed("challengeId", "유효하지 않은 challengeId입니다.")
	}

	created, err := s.challenges.EnsureExists(ctx, model.PlaceholderChallenge(id))
	if err != nil {
		return false, fmt.Errorf("service: ensuring challenge %d: %w", id, err)
	}
	if created {
		metrics.PlaceholdersCreatedTotal.WithLabelValues("challenge").Inc()
		s.logger.Info("placeholder challenge created", slog.Int64("challengeID", id))
	}
	return created, nil
}

// EnsureUser creates a user with the default nickname unless one with
// userID exists, and reports whether it created one.
func (s *ProgressService) EnsureUser(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, apperror.ValidationFailed("userId", "userId가 필요합니다.")
	}

	created, err := s.users.EnsureExists(ctx, &model.User{
		KakaoID:  userID,
		Nickname: model.DefaultNickname,
	})
	if err != nil {
		return false, fmt.Errorf("service: ensuring user %s: %w", userID, err)
	}
	if created {
		metrics.PlaceholdersCreatedTotal.WithLabelValues("user").Inc()
		s.logger.Info("placeholder user created", slog.String("userID", userID))
	}
	return created, nil
}

// UpdateStatus saves a user's grid for a challenge.
//
// STEPS:
//  1. Validate the input shape (all fields present, exactly 21 days).
//  2. Make sure the challenge and the user rows exist.
//  3. Check the day rule against what is stored:
//     - first save: no day after today may be marked done
//     - later saves: only today's slot may change
//  4. Upsert keyed by (user, challenge). A first save stores the given
//     start date; later saves keep the stored one and replace the grid.
func (s *ProgressService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*model.UserChallenge, error) {
	if input.UserID == "" || input.DailyStatus == nil || input.StartDate == nil || input.StartDate.IsZero() {
		return nil, apperror.ValidationFailed("", "userId, dailyStatus, startDate는 필수입니다.")
	}
	if !input.DailyStatus.Valid() {
		return nil, apperror.ValidationFailed("dailyStatus",
			fmt.Sprintf("dailyStatus는 %d개의 값을 가져야 합니다.", model.ChallengeDays))
	}

	if _, err := s.EnsureChallenge(ctx, input.ChallengeID); err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	var (
		prev  model.DailyStatus
		start = *input.StartDate
	)
	existing, err := s.progress.Get(ctx, input.ChallengeID, input.UserID)
	switch {
	case err == nil:
		prev = existing.DailyStatus
		start = existing.StartDate
	case errors.Is(err, apperror.ErrNotFound):
		// first save
	default:
		return nil, fmt.Errorf("service: loading progress of %s in challenge %d: %w",
			input.UserID, input.ChallengeID, err)
	}

	today := s.Today()
	if day, locked := input.DailyStatus.FirstLockedChange(prev, start, today); locked {
		return nil, lockedDayError(day, start, today)
	}

	uc := &model.UserChallenge{
		UserID:      input.UserID,
		ChallengeID: input.ChallengeID,
		DailyStatus: input.DailyStatus,
		StartDate:   start,
	}
	if err := s.progress.Upsert(ctx, uc); err != nil {
		return nil, fmt.Errorf("service: saving progress of %s in challenge %d: %w",
			input.UserID, input.ChallengeID, err)
	}

	kind := "updated"
	if existing == nil {
		kind = "created"
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(kind).Inc()

	s.logger.Info("progress saved",
		slog.String("userID", uc.UserID),
		slog.Int64("challengeID", uc.ChallengeID),
		slog.Int("completedDays", uc.DailyStatus.CompletedDays()),
		slog.String("kind", kind),
	)

	return uc, nil
}

func lockedDayError(day int, start, today model.Date) error {
	date := start.AddDays(day)
	if date.After(today) {
		return apperror.ValidationFailed("dailyStatus",
			fmt.Sprintf("%d일차(%s)는 아직 체크할 수 없습니다.", day+1, date))
	}
	return apperror.ValidationFailed("dailyStatus",
		fmt.Sprintf("%d일차(%s)는 해당 날짜에만 변경할 수 있습니다.", day+1, date))
}
