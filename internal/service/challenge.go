// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services depend on the repository interfaces, never on *sqlite.DB, so
// tests run them against in-memory fakes (see *_test.go) and the seed
// command reuses them outside HTTP entirely.
//
// Errors leaving this package are either *apperror.AppError (the client
// sees the message) or wrapped infrastructure errors (the client sees a
// generic 500).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

const MaxTitleLength = 100

// iconRules are checked in order; the first keyword found in the
// lower-cased title wins.
var iconRules = []struct {
	keywords []string
	icon     string
}{
	{[]string{"물"}, model.IconWater},
	{[]string{"운동"}, model.IconWorkout},
	{[]string{"독서", "공부"}, model.IconBook},
	{[]string{"코딩"}, model.IconCode},
}

// IconForTitle picks the icon token for a new challenge from its title.
func IconForTitle(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range iconRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.icon
			}
		}
	}
	return model.IconDefault
}

// CreateChallengeInput is what a catalogue editor submits.
type CreateChallengeInput struct {
	Title       string
	Description string
}

// UpdateChallengeInput carries optional replacements. nil or "" leaves the
// field unchanged.
type UpdateChallengeInput struct {
	Title       *string
	Description *string
}

// ChallengeService manages the challenge catalogue.
type ChallengeService struct {
	repo   repository.ChallengeRepository
	pick   func(n int) int // uniform index in [0, n)
	logger *slog.Logger
}

func NewChallengeService(repo repository.ChallengeRepository, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		repo:   repo,
		pick:   rand.Intn,
		logger: logger,
	}
}

// List returns every challenge with its participant count and a preview of
// the most recent starters.
func (s *ChallengeService) List(ctx context.Context) ([]model.ChallengeSummary, error) {
	summaries, err := s.repo.List(ctx, repository.PreviewSize)
	if err != nil {
		return nil, fmt.Errorf("service: listing challenges: %w", err)
	}
	return summaries, nil
}

// Get returns one challenge with its participant count.
func (s *ChallengeService) Get(ctx context.Context, id int64) (*model.ChallengeSummary, error) {
	summary, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: getting challenge %d: %w", id, err)
	}
	return summary, nil
}

// Create validates the title and stores a new challenge.
//
// The icon follows from the title; color, gradient, duration and
// difficulty are drawn at random from fixed sets. None of them change
// afterwards.
func (s *ChallengeService) Create(ctx context.Context, input CreateChallengeInput) (*model.Challenge, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	challenge := &model.Challenge{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Icon:        IconForTitle(title),
		Color:       model.Colors[s.pick(len(model.Colors))],
		BgGradient:  model.BgGradients[s.pick(len(model.BgGradients))],
		Duration:    model.Durations[s.pick(len(model.Durations))],
		Difficulty:  model.Difficulties[s.pick(len(model.Difficulties))],
	}

	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("service: creating challenge: %w", err)
	}
	metrics.ChallengesCreatedTotal.Inc()

	s.logger.Info("challenge created",
		slog.Int64("challengeID", challenge.ID),
		slog.String("title", challenge.Title),
		slog.String("icon", challenge.Icon),
	)

	return challenge, nil
}

// Update replaces title and/or description of an existing challenge.
func (s *ChallengeService) Update(ctx context.Context, id int64, input UpdateChallengeInput) (*model.Challenge, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: loading challenge %d: %w", id, err)
	}
	challenge := existing.Challenge

	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			if err := validateTitle(title); err != nil {
				return nil, err
			}
			challenge.Title = title
		}
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != "" {
			challenge.Description = desc
		}
	}

	if err := s.repo.Update(ctx, &challenge); err != nil {
		return nil, fmt.Errorf("service: updating challenge %d: %w", id, err)
	}

	s.logger.Info("challenge updated", slog.Int64("challengeID", id))
	return &challenge, nil
}

// Delete removes a challenge. Challenges that still have enrolments are
// refused with apperror.ErrConflict.
func (s *ChallengeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: deleting challenge %d: %w", id, err)
	}
	s.logger.Info("challenge deleted", slog.Int64("challengeID", id))
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "제목은 필수입니다.")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("제목은 %d자 이하여야 합니다.", MaxTitleLength))
	}
	return nil
}
