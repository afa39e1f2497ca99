package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parish-portal/internal/model"
)

func openBet(t *testing.T, e *testEnv, creatorID uuid.UUID, options ...string) *BetView {
	t.Helper()
	if len(options) == 0 {
		options = []string{"yes", "no"}
	}
	deadline := e.clock().Add(24 * time.Hour)
	bet, err := e.bets.CreateBet(context.Background(), creatorID, CreateBetRequest{
		Topic:           "Will the youth choir sing on Sunday?",
		Options:         options,
		BettingDeadline: deadline,
		ResolutionDate:  deadline.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return bet
}

func entryOf(t *testing.T, e *testEnv, betID, userID uuid.UUID) *model.BetEntry {
	t.Helper()
	entry, err := e.store.Bets.GetEntryByUser(context.Background(), betID, userID)
	require.NoError(t, err)
	return entry
}

// ============================================================================
// CreateBet Tests
// ============================================================================

func TestBettingService_CreateBetValidation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	creator := e.createUser(t, "creator@example.com", 0)

	deadline := testNow.Add(2 * time.Hour)
	valid := func() CreateBetRequest {
		return CreateBetRequest{
			Topic:           "Who brings the cake to the parish picnic?",
			Options:         []string{"Anna", "Piotr"},
			BettingDeadline: deadline,
			ResolutionDate:  deadline,
		}
	}

	tests := []struct {
		name   string
		modify func(*CreateBetRequest)
	}{
		{"short topic", func(r *CreateBetRequest) { r.Topic = "Cake?" }},
		{"long topic", func(r *CreateBetRequest) { r.Topic = strings.Repeat("x", 501) }},
		{"one option", func(r *CreateBetRequest) { r.Options = []string{"Anna"} }},
		{"eleven options", func(r *CreateBetRequest) {
			r.Options = strings.Split("a b c d e f g h i j k", " ")
		}},
		{"blank option", func(r *CreateBetRequest) { r.Options = []string{"Anna", "  "} }},
		{"duplicate after trim", func(r *CreateBetRequest) { r.Options = []string{"Anna", " Anna "} }},
		{"deadline in the past", func(r *CreateBetRequest) { r.BettingDeadline = testNow.Add(-time.Minute) }},
		{"resolution before deadline", func(r *CreateBetRequest) { r.ResolutionDate = deadline.Add(-time.Minute) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.modify(&req)
			_, err := e.bets.CreateBet(ctx, creator.ID, req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	req := valid()
	req.Options = []string{" Anna ", "Piotr"}
	bet, err := e.bets.CreateBet(ctx, creator.ID, req)
	require.NoError(t, err)
	assert.Equal(t, model.BetOpen, bet.Status)
	assert.Equal(t, []string{"Anna", "Piotr"}, bet.Options)
	assert.Equal(t, int64(0), bet.TotalPool)
	assert.Equal(t, map[string]int64{"Anna": 0, "Piotr": 0}, bet.PoolByOption)
}

// ============================================================================
// PlaceBet Tests
// ============================================================================

func TestBettingService_PlaceBet(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	user := e.createUser(t, "anna@example.com", 100)
	bet := openBet(t, e, creator.ID)

	entry, err := e.bets.PlaceBet(ctx, user.ID, bet.ID, "yes", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), entry.Amount)
	assert.False(t, entry.Settled)
	assert.Nil(t, entry.Winnings)
	assert.Equal(t, int64(60), e.balance(t, user.ID))

	count, err := e.store.Transactions.CountBySource(ctx, user.ID, bet.ID, model.TxBetEntry)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	e.assertReconciled(t, user.ID)

	view, err := e.bets.GetBet(ctx, bet.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, view.UserEntry)
	assert.Equal(t, entry.ID, view.UserEntry.ID)
	assert.Equal(t, int64(40), view.PoolByOption["yes"])
	assert.Equal(t, 1, view.EntriesByOption["yes"])
	assert.Equal(t, 1, view.TotalEntries)
}

func TestBettingService_PlaceBetErrors(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	user := e.createUser(t, "anna@example.com", 100)
	bet := openBet(t, e, creator.ID)

	_, err := e.bets.PlaceBet(ctx, user.ID, bet.ID, "yes", 30)
	require.NoError(t, err)

	tests := []struct {
		name   string
		betID  uuid.UUID
		option string
		amount int64
		want   error
	}{
		{"duplicate entry", bet.ID, "no", 10, ErrConflict},
		{"unknown bet", uuid.New(), "yes", 10, ErrNotFound},
		{"zero amount", bet.ID, "yes", 0, ErrInvalidArgument},
		{"negative amount", bet.ID, "yes", -5, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.bets.PlaceBet(ctx, user.ID, tt.betID, tt.option, tt.amount)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = e.bets.PlaceBet(ctx, uuid.New(), bet.ID, "yes", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	other := e.createUser(t, "other@example.com", 20)
	_, err = e.bets.PlaceBet(ctx, other.ID, bet.ID, "maybe", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.bets.PlaceBet(ctx, other.ID, bet.ID, "no", 21)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, int64(20), e.balance(t, other.ID))
	_, err = e.store.Bets.GetEntryByUser(ctx, bet.ID, other.ID)
	assert.Error(t, err, "a rejected stake must not leave an entry")

	assert.Equal(t, int64(70), e.balance(t, user.ID))
}

func TestBettingService_DeadlineAndAutoLock(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	user := e.createUser(t, "anna@example.com", 100)
	bet := openBet(t, e, creator.ID)

	locked, err := e.bets.AutoLockExpiredBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, locked)

	e.advance(25 * time.Hour)

	_, err = e.bets.PlaceBet(ctx, user.ID, bet.ID, "yes", 10)
	assert.ErrorIs(t, err, ErrConflict)

	locked, err = e.bets.AutoLockExpiredBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, locked)

	locked, err = e.bets.AutoLockExpiredBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, locked)

	view, err := e.bets.GetBet(ctx, bet.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BetLocked, view.Status)

	active, err := e.bets.ActiveBets(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, bet.ID, active[0].ID)
}

// ============================================================================
// ResolveBet Tests
// ============================================================================

func TestBettingService_ResolveProportionalPayout(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	a := e.createUser(t, "a@example.com", 200)
	b := e.createUser(t, "b@example.com", 200)
	c := e.createUser(t, "c@example.com", 200)
	bet := openBet(t, e, creator.ID)

	sub := e.hub.Subscribe(a.ID)
	defer sub.Close()

	for _, stake := range []struct {
		user   uuid.UUID
		option string
		amount int64
	}{
		{a.ID, "yes", 100},
		{b.ID, "yes", 50},
		{c.ID, "no", 100},
	} {
		_, err := e.bets.PlaceBet(ctx, stake.user, bet.ID, stake.option, stake.amount)
		require.NoError(t, err)
	}

	resolved, err := e.bets.ResolveBet(ctx, creator.ID, bet.ID, "yes", false)
	require.NoError(t, err)
	assert.Equal(t, model.BetResolved, resolved.Status)
	require.NotNil(t, resolved.WinningOption)
	assert.Equal(t, "yes", *resolved.WinningOption)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, int64(250), resolved.TotalPool)

	assert.Equal(t, int64(267), e.balance(t, a.ID))
	assert.Equal(t, int64(233), e.balance(t, b.ID))
	assert.Equal(t, int64(100), e.balance(t, c.ID))

	entryA := entryOf(t, e, bet.ID, a.ID)
	require.NotNil(t, entryA.Winnings)
	assert.Equal(t, int64(167), *entryA.Winnings)
	assert.True(t, entryA.Settled)

	entryC := entryOf(t, e, bet.ID, c.ID)
	assert.Nil(t, entryC.Winnings)
	assert.False(t, entryC.Settled)

	for _, u := range []uuid.UUID{a.ID, b.ID, c.ID} {
		e.assertReconciled(t, u)
	}

	select {
	case n := <-sub.C():
		assert.Equal(t, model.NotifySuccess, n.Type)
		assert.Contains(t, n.Message, "167")
	case <-time.After(time.Second):
		t.Fatal("winner was not notified")
	}

	_, err = e.bets.ResolveBet(ctx, creator.ID, bet.ID, "no", false)
	assert.ErrorIs(t, err, ErrConflict)

	settled, err := e.bets.SettledBets(ctx)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, 3, settled[0].TotalEntries)
}

func TestBettingService_ResolveWithoutWinnersBurnsPool(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	admin := e.createAdmin(t, "admin@example.com")
	creator := e.createUser(t, "creator@example.com", 0)
	user := e.createUser(t, "anna@example.com", 100)
	bet := openBet(t, e, creator.ID, "red", "green", "blue")

	_, err := e.bets.PlaceBet(ctx, user.ID, bet.ID, "red", 60)
	require.NoError(t, err)

	resolved, err := e.bets.ResolveBet(ctx, admin.ID, bet.ID, "blue", true)
	require.NoError(t, err)
	assert.Equal(t, model.BetResolved, resolved.Status)

	assert.Equal(t, int64(40), e.balance(t, user.ID))
	entry := entryOf(t, e, bet.ID, user.ID)
	assert.Nil(t, entry.Winnings)
	assert.False(t, entry.Settled)
	e.assertReconciled(t, user.ID)
}

func TestBettingService_ResolvePermissions(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	stranger := e.createUser(t, "stranger@example.com", 0)
	bet := openBet(t, e, creator.ID)

	_, err := e.bets.ResolveBet(ctx, stranger.ID, bet.ID, "yes", false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.bets.ResolveBet(ctx, creator.ID, bet.ID, "maybe", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.bets.ResolveBet(ctx, creator.ID, uuid.New(), "yes", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.bets.ResolveBet(ctx, stranger.ID, bet.ID, "no", true)
	require.NoError(t, err)
}

// ============================================================================
// CancelBet Tests
// ============================================================================

func TestBettingService_CancelRefundsEveryStake(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	admin := e.createAdmin(t, "admin@example.com")
	creator := e.createUser(t, "creator@example.com", 0)
	bet := openBet(t, e, creator.ID, "one", "two", "three")

	stakes := []int64{10, 20, 30}
	users := make([]*model.User, len(stakes))
	for i, amount := range stakes {
		users[i] = e.createUser(t, uuid.NewString()+"@example.com", 100)
		_, err := e.bets.PlaceBet(ctx, users[i].ID, bet.ID, bet.Options[i], amount)
		require.NoError(t, err)
	}

	err := e.bets.CancelBet(ctx, bet.ID, creator.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, e.bets.CancelBet(ctx, bet.ID, admin.ID, true))

	for i, u := range users {
		assert.Equal(t, int64(100), e.balance(t, u.ID))
		entry := entryOf(t, e, bet.ID, u.ID)
		require.NotNil(t, entry.Winnings)
		assert.Equal(t, stakes[i], *entry.Winnings)
		assert.True(t, entry.Settled)

		count, err := e.store.Transactions.CountBySource(ctx, u.ID, bet.ID, model.TxBetRefund)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		e.assertReconciled(t, u.ID)
	}

	view, err := e.bets.GetBet(ctx, bet.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, model.BetCancelled, view.Status)
	assert.Nil(t, view.UserEntry)

	err = e.bets.CancelBet(ctx, bet.ID, admin.ID, true)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.bets.ResolveBet(ctx, admin.ID, bet.ID, "one", true)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBettingService_CancelResolvedBet(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	admin := e.createAdmin(t, "admin@example.com")
	bet := openBet(t, e, admin.ID)

	_, err := e.bets.ResolveBet(ctx, admin.ID, bet.ID, "yes", true)
	require.NoError(t, err)

	err = e.bets.CancelBet(ctx, bet.ID, admin.ID, true)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBettingService_UserBets(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	creator := e.createUser(t, "creator@example.com", 0)
	user := e.createUser(t, "anna@example.com", 100)
	first := openBet(t, e, creator.ID)
	openBet(t, e, creator.ID)

	_, err := e.bets.PlaceBet(ctx, user.ID, first.ID, "no", 5)
	require.NoError(t, err)

	mine, err := e.bets.UserBets(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
	require.NotNil(t, mine[0].UserEntry)
	assert.Equal(t, "no", mine[0].UserEntry.SelectedOption)

	active, err := e.bets.ActiveBets(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
