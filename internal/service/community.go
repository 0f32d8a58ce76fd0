package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

const anonymousPrefix = "익명 사용자 "

// CommunityService builds the read-only views of who is doing a challenge.
// Nothing is cached; every call reads the store.
type CommunityService struct {
	progress repository.ProgressRepository
	logger   *slog.Logger
}

func NewCommunityService(progress repository.ProgressRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{progress: progress, logger: logger}
}

// AnonymousNickname is shown for participants without a nickname:
// the prefix plus the first four characters of their id.
func AnonymousNickname(userID string) string {
	runes := []rune(userID)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return anonymousPrefix + string(runes)
}

// CommunityStatus returns every participant's completion rate.
func (s *CommunityService) CommunityStatus(ctx context.Context, challengeID int64) ([]model.CommunityEntry, error) {
	rows, err := s.progress.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("service: loading community of challenge %d: %w", challengeID, err)
	}

	entries := make([]model.CommunityEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.CommunityEntry{
			CompletionRate: row.DailyStatus.CompletionRate(),
		}
		if row.Nickname != nil && *row.Nickname != "" {
			entry.Nickname = *row.Nickname
		} else {
			entry.Nickname = AnonymousNickname(row.UserID)
		}
		if row.ProfilePictureURL != nil {
			entry.ProfilePictureURL = *row.ProfilePictureURL
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Participants lists the enrolled users by nickname.
func (s *CommunityService) Participants(ctx context.Context, challengeID int64) ([]model.Participant, error) {
	participants, err := s.progress.Participants(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("service: loading participants of challenge %d: %w", challengeID, err)
	}
	return participants, nil
}
