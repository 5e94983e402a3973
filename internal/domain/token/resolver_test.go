package token_test

import (
	"context"
	"testing"

	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/rpggio/cairn/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Project R has tokens [T1, T2]; units lookup for T2 fails.
func TestResolver_FailedTokenFallsBack(t *testing.T) {
	ctx := context.Background()
	ledger := &mocks.Ledger{}
	ledger.On("GetTokenOwner", mock.Anything, "T1").Return("0x1111111111111111111111111111111111111111", nil)
	ledger.On("GetTokenUnits", mock.Anything, "T1").Return(int64(250), nil)
	ledger.On("GetTokenOwner", mock.Anything, "T2").Return("0x2222222222222222222222222222222222222222", nil)
	ledger.On("GetTokenUnits", mock.Anything, "T2").Return(int64(0), repository.ErrUnreachable)

	got := token.NewResolver(ledger, 4, nil, nil).Resolve(ctx, []string{"T1", "T2"})

	require.Equal(t, []token.Ownership{
		{TokenID: "T1", Owner: "0x1111111111111111111111111111111111111111", Units: 250},
		{TokenID: "T2", Owner: token.ZeroAddress, Units: 0},
	}, got)
	require.False(t, got[0].IsPlaceholder())
	require.True(t, got[1].IsPlaceholder())
}

func TestResolver_Empty(t *testing.T) {
	got := token.NewResolver(&mocks.Ledger{}, 0, nil, nil).Resolve(context.Background(), nil)
	require.Empty(t, got)
}

func TestFraction(t *testing.T) {
	require.InDelta(t, 0.25, token.Fraction(250, 1000), 1e-9)
	require.InDelta(t, 0.5, token.Fraction(500, 0), 1e-9, "non-positive total falls back to the default denominator")
	require.InDelta(t, 0.1, token.Ownership{Units: 10}.Fraction(100), 1e-9)
}

func TestAddresses(t *testing.T) {
	require.True(t, token.IsAddress(token.ZeroAddress))
	require.False(t, token.IsAddress("0x123"))
	require.True(t, token.SameAddress("0xABCDEF0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000001"))
	require.False(t, token.SameAddress("", ""))
}
