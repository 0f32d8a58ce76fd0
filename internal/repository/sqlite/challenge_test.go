package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestChallengeCreate(t *testing.T) {
	db := newTestDB(t)

	first := createTestChallenge(t, db, "물 마시기")
	second := createTestChallenge(t, db, "운동하기")

	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestChallengeGetByID(t *testing.T) {
	db := newTestDB(t)
	c := createTestChallenge(t, db, "물 마시기")
	createTestUser(t, db, "u1", "가")
	saveTestProgress(t, db, "u1", c.ID, model.NewDate(2024, time.January, 1))

	got, err := db.Challenges().GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "물 마시기", got.Title)
	assert.Equal(t, model.IconDefault, got.Icon)
	assert.Equal(t, 1, got.ParticipantCount)
}

func TestChallengeGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Challenges().GetByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestChallengeList_Empty(t *testing.T) {
	db := newTestDB(t)

	got, err := db.Challenges().List(context.Background(), repository.PreviewSize)
	require.NoError(t, err)
	assert.NotNil(t, got, "empty list should be [], not nil")
	assert.Len(t, got, 0)
}

func TestChallengeList_PreviewIsNewestFive(t *testing.T) {
	db := newTestDB(t)
	water := createTestChallenge(t, db, "물 마시기")
	quiet := createTestChallenge(t, db, "명상")

	// Seven participants with start dates on consecutive days; the preview
	// keeps the five latest starters, newest first.
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, name := range names {
		createTestUser(t, db, name, name)
		saveTestProgress(t, db, name, water.ID, model.NewDate(2024, time.January, 1+i))
	}

	got, err := db.Challenges().List(context.Background(), repository.PreviewSize)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, water.ID, got[0].ID)
	assert.Equal(t, 7, got[0].ParticipantCount)
	require.Len(t, got[0].Preview, 5)
	var nicknames []string
	for _, p := range got[0].Preview {
		nicknames = append(nicknames, p.Nickname)
	}
	assert.Equal(t, []string{"g", "f", "e", "d", "c"}, nicknames)

	assert.Equal(t, quiet.ID, got[1].ID)
	assert.Equal(t, 0, got[1].ParticipantCount)
	assert.Empty(t, got[1].Preview)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestChallengeUpdate_OnlyTitleAndDescription(t *testing.T) {
	db := newTestDB(t)
	c := createTestChallenge(t, db, "물 마시기")

	c.Title = "물 2리터"
	c.Description = "하루 2리터"
	c.Icon = model.IconCode // must be ignored
	require.NoError(t, db.Challenges().Update(context.Background(), c))

	got, err := db.Challenges().GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "물 2리터", got.Title)
	assert.Equal(t, "하루 2리터", got.Description)
	assert.Equal(t, model.IconDefault, got.Icon)
}

func TestChallengeUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Challenges().Update(context.Background(), &model.Challenge{ID: 999, Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestChallengeDelete(t *testing.T) {
	db := newTestDB(t)
	c := createTestChallenge(t, db, "삭제될 챌린지")

	require.NoError(t, db.Challenges().Delete(context.Background(), c.ID))

	_, err := db.Challenges().GetByID(context.Background(), c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChallengeDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Challenges().Delete(context.Background(), 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChallengeDelete_WithProgressIsConflict(t *testing.T) {
	db := newTestDB(t)
	c := createTestChallenge(t, db, "물 마시기")
	createTestUser(t, db, "u1", "가")
	saveTestProgress(t, db, "u1", c.ID, model.NewDate(2024, time.January, 1))

	err := db.Challenges().Delete(context.Background(), c.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = db.Challenges().GetByID(context.Background(), c.ID)
	assert.NoError(t, err, "challenge must survive a refused delete")
}

// =========================================================================
// ENSURE TESTS
// =========================================================================

func TestChallengeEnsureExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.Challenges().EnsureExists(ctx, model.PlaceholderChallenge(42))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.Challenges().EnsureExists(ctx, model.PlaceholderChallenge(42))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := db.Challenges().GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "챌린지 42", got.Title)

	// Ids handed out afterwards continue past the placeholder.
	next := createTestChallenge(t, db, "다음")
	assert.Greater(t, next.ID, int64(42))
}
