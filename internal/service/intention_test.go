package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"parish-portal/internal/model"
)

func TestNextBoxDate(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{"wednesday stays", day(2026, time.October, 14), day(2026, time.October, 14)},
		{"thursday to sunday", day(2026, time.October, 15), day(2026, time.October, 18)},
		{"sunday stays", day(2026, time.October, 18), day(2026, time.October, 18)},
		{"monday to wednesday", day(2026, time.October, 19), day(2026, time.October, 21)},
		{"saturday to sunday", day(2026, time.October, 17), day(2026, time.October, 18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextBoxDate(tt.today))
		})
	}
}

// TestNextBoxDateProperty checks the box date is the nearest Wednesday or
// Sunday on or after today.
func TestNextBoxDateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.IntRange(-3650, 3650).Draw(t, "offset")
		today := day(2026, time.January, 1).AddDate(0, 0, offset)

		got := NextBoxDate(today)
		if wd := got.Weekday(); wd != time.Wednesday && wd != time.Sunday {
			t.Fatalf("box date %s falls on %s", got, wd)
		}
		gap := int(got.Sub(today).Hours() / 24)
		if gap < 0 || gap > 3 {
			t.Fatalf("box date %s is %d days after %s", got, gap, today)
		}
		for d := today; d.Before(got); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd == time.Wednesday || wd == time.Sunday {
				t.Fatalf("skipped %s", d)
			}
		}
	})
}

// ============================================================================
// IntentionService integration tests
// ============================================================================

func TestIntentionService_Create(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user := e.createUser(t, "anna@example.com", 0)

	box, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{
		Content: "  For the sick of our parish  ",
		Type:    model.IntentionBox,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", box.TargetDate)
	assert.Equal(t, "For the sick of our parish", box.Content)
	assert.Equal(t, model.IntentionPending, box.Status)
	assert.Equal(t, "Anna Nowak", box.AuthorName)

	massDate := day(2026, time.November, 2)
	mass, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{
		Content:     "For the late Jan",
		Type:        model.IntentionMass,
		IsAnonymous: true,
		Date:        &massDate,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-11-02", mass.TargetDate)
	assert.Equal(t, "Anonymous", mass.AuthorName)

	mine, err := e.intentions.MyIntentions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, mass.ID, mine[0].ID)
}

func TestIntentionService_CreateValidation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user := e.createUser(t, "anna@example.com", 0)
	yesterday := day(2026, time.October, 13)
	today := day(2026, time.October, 14)

	tests := []struct {
		name   string
		userID uuid.UUID
		req    CreateIntentionRequest
		want   error
	}{
		{"blank content", user.ID, CreateIntentionRequest{Content: " ", Type: model.IntentionBox}, ErrInvalidArgument},
		{"content too long", user.ID, CreateIntentionRequest{Content: strings.Repeat("a", 501), Type: model.IntentionBox}, ErrInvalidArgument},
		{"mass without date", user.ID, CreateIntentionRequest{Content: "x", Type: model.IntentionMass}, ErrInvalidArgument},
		{"mass in the past", user.ID, CreateIntentionRequest{Content: "x", Type: model.IntentionMass, Date: &yesterday}, ErrInvalidArgument},
		{"unknown type", user.ID, CreateIntentionRequest{Content: "x", Type: "CANDLE"}, ErrInvalidArgument},
		{"unknown author", uuid.New(), CreateIntentionRequest{Content: "x", Type: model.IntentionBox}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.intentions.Create(ctx, tt.userID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "x", Type: model.IntentionMass, Date: &today})
	require.NoError(t, err)
}

func TestIntentionService_Review(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user := e.createUser(t, "anna@example.com", 0)
	sub := e.hub.Subscribe(user.ID)
	defer sub.Close()

	accepted, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "For peace", Type: model.IntentionBox})
	require.NoError(t, err)
	rejected, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "For rain", Type: model.IntentionBox})
	require.NoError(t, err)

	pending, err := e.intentions.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	view, err := e.intentions.Review(ctx, accepted.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, model.IntentionApproved, view.Status)
	assert.Nil(t, view.AdminResponse)

	select {
	case n := <-sub.C():
		assert.Equal(t, model.NotifySuccess, n.Type)
		assert.Equal(t, "Your intention for 2026-10-14 has been accepted.", n.Message)
	case <-time.After(time.Second):
		t.Fatal("acceptance was not delivered")
	}

	view, err = e.intentions.Review(ctx, rejected.ID, false, "  ")
	require.NoError(t, err)
	assert.Equal(t, model.IntentionRejected, view.Status)

	select {
	case n := <-sub.C():
		assert.Equal(t, model.NotifyWarning, n.Type)
		assert.Contains(t, n.Message, "No reason given")
	case <-time.After(time.Second):
		t.Fatal("rejection was not delivered")
	}

	_, err = e.intentions.Review(ctx, uuid.New(), true, "")
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := e.intentions.ApprovedFor(ctx, day(2026, time.October, 14))
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, accepted.ID, approved[0].ID)

	pending, err = e.intentions.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestIntentionService_ReviewKeepsReason(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user := e.createUser(t, "anna@example.com", 0)
	in, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "For my exam", Type: model.IntentionBox})
	require.NoError(t, err)

	view, err := e.intentions.Review(ctx, in.ID, false, "Please rephrase")
	require.NoError(t, err)
	require.NotNil(t, view.AdminResponse)
	assert.Equal(t, "Please rephrase", *view.AdminResponse)

	list, err := e.notifications.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Message from the parish office: Please rephrase", list[0].Message)
}

func TestIntentionService_ArchivePast(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user := e.createUser(t, "anna@example.com", 0)
	later := day(2026, time.October, 21)

	today, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "Today", Type: model.IntentionBox})
	require.NoError(t, err)
	future, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "Later", Type: model.IntentionMass, Date: &later})
	require.NoError(t, err)
	stillPending, err := e.intentions.Create(ctx, user.ID, CreateIntentionRequest{Content: "Pending", Type: model.IntentionBox})
	require.NoError(t, err)

	_, err = e.intentions.Review(ctx, today.ID, true, "")
	require.NoError(t, err)
	_, err = e.intentions.Review(ctx, future.ID, true, "")
	require.NoError(t, err)

	archived, err := e.intentions.ArchivePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	archived, err = e.intentions.ArchivePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, archived)

	statuses := map[uuid.UUID]model.IntentionStatus{}
	mine, err := e.intentions.MyIntentions(ctx, user.ID)
	require.NoError(t, err)
	for _, in := range mine {
		statuses[in.ID] = in.Status
	}
	assert.Equal(t, model.IntentionCompleted, statuses[today.ID])
	assert.Equal(t, model.IntentionApproved, statuses[future.ID])
	assert.Equal(t, model.IntentionPending, statuses[stillPending.ID])

	_, err = e.intentions.Review(ctx, today.ID, false, "")
	assert.ErrorIs(t, err, ErrConflict)
}
