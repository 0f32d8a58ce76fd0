// Package seed fills a database with demo data: a starter catalogue and
// fake participants with plausible progress. It goes through the same
// services the API uses, so seeded data obeys the same rules.
//
// Development and demo use only.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/service"
)

// DemoChallenges is the starter catalogue.
var DemoChallenges = []service.CreateChallengeInput{
	{Title: "매일 물 2L 마시기", Description: "하루 2리터의 물을 마시고 체크하세요."},
	{Title: "매일 30분 운동하기", Description: "걷기, 달리기, 홈트레이닝 무엇이든 30분."},
	{Title: "하루 20페이지 독서", Description: "잠들기 전 20페이지씩 읽어요."},
	{Title: "매일 1시간 공부하기", Description: "자격증, 어학, 무엇이든 한 시간."},
	{Title: "하루 한 문제 코딩", Description: "알고리즘 문제를 하루에 하나씩 풀어요."},
	{Title: "아침 6시 기상", Description: "21일 동안 같은 시간에 일어나기."},
}

// Options controls how much is generated.
type Options struct {
	Participants int   // fake users to create
	Seed         int64 // 0 picks a random seed
}

// Result summarises a run.
type Result struct {
	ChallengesCreated int
	UsersCreated      int
	ProgressSaved     int
}

// Seeder builds demo entities and persists them through the services.
type Seeder struct {
	challenges *service.ChallengeService
	progress   *service.ProgressService
	users      repository.UserRepository
	faker      *gofakeit.Faker
	opts       Options
	logger     *slog.Logger
}

func New(
	challenges *service.ChallengeService,
	progress *service.ProgressService,
	users repository.UserRepository,
	opts Options,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		challenges: challenges,
		progress:   progress,
		users:      users,
		faker:      gofakeit.New(opts.Seed),
		opts:       opts,
		logger:     logger,
	}
}

// Run creates the demo catalogue (only into an empty catalogue), then the
// fake participants, each enrolled in one to three challenges.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	catalogue, err := s.challenges.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: listing challenges: %w", err)
	}
	if len(catalogue) == 0 {
		for _, input := range DemoChallenges {
			if _, err := s.challenges.Create(ctx, input); err != nil {
				return nil, fmt.Errorf("seed: creating %q: %w", input.Title, err)
			}
			result.ChallengesCreated++
		}
		if catalogue, err = s.challenges.List(ctx); err != nil {
			return nil, fmt.Errorf("seed: listing challenges: %w", err)
		}
	}

	for i := 0; i < s.opts.Participants; i++ {
		user := s.fakeUser()
		if err := s.users.Upsert(ctx, user); err != nil {
			return nil, fmt.Errorf("seed: creating user %s: %w", user.KakaoID, err)
		}
		result.UsersCreated++

		enrolments := s.faker.Number(1, min(3, len(catalogue)))
		for _, idx := range s.pickDistinct(len(catalogue), enrolments) {
			if err := s.enrol(ctx, user.KakaoID, catalogue[idx].ID); err != nil {
				return nil, err
			}
			result.ProgressSaved++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("challenges", result.ChallengesCreated),
		slog.Int("users", result.UsersCreated),
		slog.Int("progress", result.ProgressSaved),
	)
	return result, nil
}

// fakeUser returns a user with a Kakao-like numeric id. About a third of
// them have no avatar, like users who declined to share one.
func (s *Seeder) fakeUser() *model.User {
	email := s.faker.Email()
	user := &model.User{
		KakaoID:  fmt.Sprintf("%d", s.faker.Number(1_000_000_000, 9_999_999_999)),
		Email:    &email,
		Nickname: s.faker.FirstName(),
	}
	if s.faker.Number(0, 2) > 0 {
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID())
		user.ProfilePictureURL = &avatar
	}
	return user
}

// enrol saves a grid that started up to 20 days ago, with random days
// done up to and including today.
func (s *Seeder) enrol(ctx context.Context, userID string, challengeID int64) error {
	daysIn := s.faker.Number(0, model.ChallengeDays-1)
	start := s.progress.Today().AddDays(-daysIn)

	status := model.NewDailyStatus()
	for day := 0; day <= daysIn; day++ {
		status[day] = s.faker.Number(0, 3) > 0 // ~75% of days done
	}

	_, err := s.progress.UpdateStatus(ctx, service.UpdateStatusInput{
		ChallengeID: challengeID,
		UserID:      userID,
		DailyStatus: status,
		StartDate:   &start,
	})
	if err != nil {
		return fmt.Errorf("seed: enrolling %s in %d: %w", userID, challengeID, err)
	}
	return nil
}

// pickDistinct returns k distinct indexes in [0, n).
func (s *Seeder) pickDistinct(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleAnySlice(idx)
	return idx[:k]
}
