package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/stretchr/testify/require"
)

func newSession(id, wallet string) *session.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &session.Session{
		ID:            id,
		WalletAddress: wallet,
		Role:          session.RoleScientist,
		Status:        session.StatusActive,
		PoRAllowance:  2,
		CreatedAt:     now,
		LastActivity:  now,
	}
}

func TestSessionRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess := newSession("s1", walletA)
	require.NoError(t, repo.Create(ctx, sess))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, walletA, got.WalletAddress)
	require.Equal(t, session.RoleScientist, got.Role)
	require.Equal(t, session.StatusActive, got.Status)
	require.Equal(t, int64(2), got.PoRAllowance)
	require.Nil(t, got.ClosedAt)
	require.True(t, sess.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Create(ctx, sess), repository.ErrConflict)
}

func TestSessionRepository_Close(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Create(ctx, newSession("s1", walletA)))
	require.NoError(t, repo.Close(ctx, "s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, session.StatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)

	require.ErrorIs(t, repo.Close(ctx, "missing"), repository.ErrNotFound)
}

func TestSessionRepository_ListActive(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Create(ctx, newSession("s1", walletA)))
	require.NoError(t, repo.Create(ctx, newSession("s2", walletA)))
	require.NoError(t, repo.Create(ctx, newSession("s3", walletB)))
	require.NoError(t, repo.Close(ctx, "s2"))

	active, err := repo.ListActive(ctx, "0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "s1", active[0].ID)

	none, err := repo.ListActive(ctx, "0x00000000000000000000000000000000000000cc")
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestSessionRepository_RejectsUnknownRole(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess := newSession("s1", walletA)
	sess.Role = "Auditor"
	require.ErrorIs(t, repo.Create(ctx, sess), repository.ErrInvalidInput)
}
