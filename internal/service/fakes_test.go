package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory repositories with the same observable behaviour as the SQLite
// ones: upserts keyed on the unique columns, NotFound on misses, rows
// returned in insertion order. Setting an *Err field simulates a database
// failure on that call.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*model.User
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	now := time.Now()
	if existing, ok := f.users[user.KakaoID]; ok {
		existing.Email = user.Email
		existing.Nickname = user.Nickname
		existing.ProfilePictureURL = user.ProfilePictureURL
		existing.UpdatedAt = now
		*user = *existing
		return nil
	}
	user.CreatedAt, user.UpdatedAt = now, now
	copied := *user
	f.users[user.KakaoID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByKakaoID(_ context.Context, kakaoID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[kakaoID]
	if !ok {
		return nil, apperror.NotFound("사용자를 찾을 수 없습니다.")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) EnsureExists(_ context.Context, user *model.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.KakaoID]; ok {
		return false, nil
	}
	copied := *user
	f.users[user.KakaoID] = &copied
	return true, nil
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	challenges map[int64]*model.Challenge
	nextID     int64
	progress   *fakeProgressRepo // for participant counts
	createErr  error
}

func newFakeChallengeRepo(progress *fakeProgressRepo) *fakeChallengeRepo {
	return &fakeChallengeRepo{
		challenges: make(map[int64]*model.Challenge),
		nextID:     1,
		progress:   progress,
	}
}

var _ repository.ChallengeRepository = (*fakeChallengeRepo)(nil)

func (f *fakeChallengeRepo) Create(_ context.Context, c *model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = f.nextID
	f.nextID++
	c.CreatedAt = time.Now()
	copied := *c
	f.challenges[c.ID] = &copied
	return nil
}

func (f *fakeChallengeRepo) GetByID(_ context.Context, id int64) (*model.ChallengeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, apperror.NotFound("챌린지를 찾을 수 없습니다.")
	}
	return &model.ChallengeSummary{Challenge: *c, ParticipantCount: f.progress.count(id)}, nil
}

func (f *fakeChallengeRepo) List(_ context.Context, _ int) ([]model.ChallengeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ChallengeSummary{}
	for _, c := range f.challenges {
		out = append(out, model.ChallengeSummary{Challenge: *c, ParticipantCount: f.progress.count(c.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeChallengeRepo) Update(_ context.Context, c *model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.challenges[c.ID]
	if !ok {
		return apperror.NotFound("챌린지를 찾을 수 없습니다.")
	}
	existing.Title = c.Title
	existing.Description = c.Description
	return nil
}

func (f *fakeChallengeRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress.count(id) > 0 {
		return apperror.Conflict("참여 기록이 있는 챌린지는 삭제할 수 없습니다.")
	}
	if _, ok := f.challenges[id]; !ok {
		return apperror.NotFound("챌린지를 찾을 수 없습니다.")
	}
	delete(f.challenges, id)
	return nil
}

func (f *fakeChallengeRepo) EnsureExists(_ context.Context, c *model.Challenge) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.challenges[c.ID]; ok {
		return false, nil
	}
	copied := *c
	f.challenges[c.ID] = &copied
	if c.ID >= f.nextID {
		f.nextID = c.ID + 1
	}
	return true, nil
}

type progressKey struct {
	challengeID int64
	userID      string
}

type fakeProgressRepo struct {
	mu        sync.Mutex
	rows      map[progressKey]*model.UserChallenge
	order     []progressKey
	nextID    int64
	users     *fakeUserRepo // for joins
	upsertErr error
}

func newFakeProgressRepo(users *fakeUserRepo) *fakeProgressRepo {
	return &fakeProgressRepo{
		rows:   make(map[progressKey]*model.UserChallenge),
		nextID: 1,
		users:  users,
	}
}

var _ repository.ProgressRepository = (*fakeProgressRepo)(nil)

func (f *fakeProgressRepo) count(challengeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.rows {
		if k.challengeID == challengeID {
			n++
		}
	}
	return n
}

func (f *fakeProgressRepo) Get(_ context.Context, challengeID int64, userID string) (*model.UserChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uc, ok := f.rows[progressKey{challengeID, userID}]
	if !ok {
		return nil, apperror.NotFound("사용자의 챌린지 기록을 찾을 수 없습니다.")
	}
	copied := *uc
	copied.DailyStatus = append(model.DailyStatus(nil), uc.DailyStatus...)
	return &copied, nil
}

func (f *fakeProgressRepo) Upsert(_ context.Context, p *model.UserChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := progressKey{p.ChallengeID, p.UserID}
	status := append(model.DailyStatus(nil), p.DailyStatus...)
	if existing, ok := f.rows[key]; ok {
		existing.DailyStatus = status
		*p = *existing
		return nil
	}
	row := &model.UserChallenge{
		ID:          f.nextID,
		UserID:      p.UserID,
		ChallengeID: p.ChallengeID,
		DailyStatus: status,
		StartDate:   p.StartDate,
	}
	f.nextID++
	f.rows[key] = row
	f.order = append(f.order, key)
	*p = *row
	return nil
}

func (f *fakeProgressRepo) ListByChallenge(ctx context.Context, challengeID int64) ([]model.ParticipantProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ParticipantProgress{}
	for _, k := range f.order {
		if k.challengeID != challengeID {
			continue
		}
		row := f.rows[k]
		entry := model.ParticipantProgress{UserID: row.UserID, DailyStatus: row.DailyStatus}
		if u, err := f.users.GetByKakaoID(ctx, row.UserID); err == nil {
			entry.Nickname = &u.Nickname
			entry.ProfilePictureURL = u.ProfilePictureURL
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeProgressRepo) Participants(ctx context.Context, challengeID int64) ([]model.Participant, error) {
	rows, _ := f.ListByChallenge(ctx, challengeID)
	out := []model.Participant{}
	for _, r := range rows {
		if r.Nickname == nil {
			continue
		}
		out = append(out, model.Participant{Nickname: *r.Nickname, ProfilePictureURL: r.ProfilePictureURL})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

// fakeStore wires the three fakes together the way *sqlite.DB does.
type fakeStore struct {
	users      *fakeUserRepo
	challenges *fakeChallengeRepo
	progress   *fakeProgressRepo
}

func newFakeStore() *fakeStore {
	users := newFakeUserRepo()
	progress := newFakeProgressRepo(users)
	return &fakeStore{
		users:      users,
		challenges: newFakeChallengeRepo(progress),
		progress:   progress,
	}
}
