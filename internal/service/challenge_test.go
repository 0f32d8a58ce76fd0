package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
)

func newTestChallengeService(store *fakeStore) *ChallengeService {
	svc := NewChallengeService(store.challenges, discardLogger())
	// Always pick the last entry so the cosmetic fields are predictable.
	svc.pick = func(n int) int { return n - 1 }
	return svc
}

func TestIconForTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"물 마시기", model.IconWater},
		{"매일 운동하기", model.IconWorkout},
		{"독서 30분", model.IconBook},
		{"영어 공부", model.IconBook},
		{"코딩 1시간", model.IconCode},
		{"일찍 일어나기", model.IconDefault},
		// first rule wins
		{"물 마시고 운동하기", model.IconWater},
		{"코딩 공부", model.IconBook},
		{"", model.IconDefault},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, IconForTitle(tt.title))
		})
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestChallengeCreate_AssignsCosmetics(t *testing.T) {
	store := newFakeStore()
	svc := newTestChallengeService(store)

	c, err := svc.Create(context.Background(), CreateChallengeInput{Title: "물 마시기", Description: "하루 8잔"})
	require.NoError(t, err)

	assert.NotZero(t, c.ID)
	assert.Equal(t, model.IconWater, c.Icon)
	assert.Equal(t, model.Colors[len(model.Colors)-1], c.Color)
	assert.Equal(t, model.BgGradients[len(model.BgGradients)-1], c.BgGradient)
	assert.Equal(t, model.Durations[len(model.Durations)-1], c.Duration)
	assert.Equal(t, model.Difficulties[len(model.Difficulties)-1], c.Difficulty)

	// The icon survives a read back.
	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IconWater, got.Icon)
}

func TestChallengeCreate_DefaultRandomPickStaysInRange(t *testing.T) {
	store := newFakeStore()
	svc := NewChallengeService(store.challenges, discardLogger())

	for i := 0; i < 50; i++ {
		c, err := svc.Create(context.Background(), CreateChallengeInput{Title: "아무거나"})
		require.NoError(t, err)
		assert.Contains(t, model.Colors, c.Color)
		assert.Contains(t, model.BgGradients, c.BgGradient)
		assert.Contains(t, model.Durations, c.Duration)
		assert.Contains(t, model.Difficulties, c.Difficulty)
	}
}

func TestChallengeCreate_DescriptionDefaultsToEmpty(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())

	c, err := svc.Create(context.Background(), CreateChallengeInput{Title: "명상"})
	require.NoError(t, err)
	assert.Equal(t, "", c.Description)
}

func TestChallengeCreate_Validation(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())

	tests := []struct {
		name  string
		title string
	}{
		{"empty title", ""},
		{"whitespace title", "   "},
		{"title too long", strings.Repeat("가", MaxTitleLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), CreateChallengeInput{Title: tt.title})
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestChallengeCreate_RepositoryError(t *testing.T) {
	store := newFakeStore()
	store.challenges.createErr = errors.New("disk full")
	svc := newTestChallengeService(store)

	_, err := svc.Create(context.Background(), CreateChallengeInput{Title: "물"})
	assert.ErrorIs(t, err, store.challenges.createErr)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestChallengeUpdate_PartialFields(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateChallengeInput{Title: "물 마시기", Description: "원래 설명"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, c.ID, UpdateChallengeInput{Title: strPtr("코딩하기")})
	require.NoError(t, err)
	assert.Equal(t, "코딩하기", updated.Title)
	assert.Equal(t, "원래 설명", updated.Description, "missing description stays")
	assert.Equal(t, model.IconWater, updated.Icon, "icon is fixed at creation")

	updated, err = svc.Update(ctx, c.ID, UpdateChallengeInput{Title: strPtr(""), Description: strPtr("새 설명")})
	require.NoError(t, err)
	assert.Equal(t, "코딩하기", updated.Title, "empty title means unchanged")
	assert.Equal(t, "새 설명", updated.Description)
}

func TestChallengeUpdate_NotFound(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())

	_, err := svc.Update(context.Background(), 999, UpdateChallengeInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChallengeUpdate_TitleTooLong(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())
	c, _ := svc.Create(context.Background(), CreateChallengeInput{Title: "물"})

	_, err := svc.Update(context.Background(), c.ID, UpdateChallengeInput{Title: strPtr(strings.Repeat("a", 101))})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// DELETE / LIST TESTS
// =========================================================================

func TestChallengeDelete(t *testing.T) {
	store := newFakeStore()
	svc := newTestChallengeService(store)
	ctx := context.Background()
	c, _ := svc.Create(ctx, CreateChallengeInput{Title: "물"})

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err := svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), apperror.ErrNotFound)
}

func TestChallengeList(t *testing.T) {
	svc := newTestChallengeService(newFakeStore())
	ctx := context.Background()

	empty, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	svc.Create(ctx, CreateChallengeInput{Title: "물"})
	svc.Create(ctx, CreateChallengeInput{Title: "운동"})

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.IconWater, all[0].Icon)
	assert.Equal(t, model.IconWorkout, all[1].Icon)
}
