package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func warsaw(t testing.TB) *time.Location {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

// ============================================================================
// Schedule Tests
// ============================================================================

func TestWeeklyAt(t *testing.T) {
	loc := warsaw(t)
	archive := WeeklyAt(loc, 23, 0, time.Wednesday, time.Sunday)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "wednesday morning runs the same evening",
			now:  time.Date(2026, time.October, 14, 9, 0, 0, 0, loc),
			want: time.Date(2026, time.October, 14, 23, 0, 0, 0, loc),
		},
		{
			name: "exactly at the run time moves to sunday",
			now:  time.Date(2026, time.October, 14, 23, 0, 0, 0, loc),
			want: time.Date(2026, time.October, 18, 23, 0, 0, 0, loc),
		},
		{
			name: "sunday night moves to wednesday",
			now:  time.Date(2026, time.October, 18, 23, 30, 0, 0, loc),
			want: time.Date(2026, time.October, 21, 23, 0, 0, 0, loc),
		},
		{
			name: "utc input is read in warsaw",
			now:  time.Date(2026, time.October, 14, 21, 30, 0, 0, time.UTC),
			want: time.Date(2026, time.October, 18, 23, 0, 0, 0, loc),
		},
		{
			name: "across the october clock change",
			now:  time.Date(2026, time.October, 22, 12, 0, 0, 0, loc),
			want: time.Date(2026, time.October, 25, 23, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(archive(tt.now)), "got %s", archive(tt.now))
		})
	}
}

func TestWeeklyAtProperty(t *testing.T) {
	loc := warsaw(t)
	archive := WeeklyAt(loc, 23, 0, time.Wednesday, time.Sunday)
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		minutes := rapid.IntRange(0, 2*365*24*60).Draw(t, "minutes")
		now := base.Add(time.Duration(minutes) * time.Minute)

		next := archive(now)
		local := next.In(loc)
		if !next.After(now) {
			t.Fatalf("next %s is not after %s", next, now)
		}
		// Four days plus the hour gained when summer time ends.
		if next.Sub(now) > 4*24*time.Hour+time.Hour {
			t.Fatalf("next %s is too far after %s", next, now)
		}
		if wd := local.Weekday(); wd != time.Wednesday && wd != time.Sunday {
			t.Fatalf("next %s falls on %s", local, wd)
		}
		if local.Hour() != 23 || local.Minute() != 0 {
			t.Fatalf("next %s is not at 23:00", local)
		}
	})
}

func TestEvery(t *testing.T) {
	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Minute), Every(time.Minute)(now))
}

// ============================================================================
// Scheduler Tests
// ============================================================================

func TestScheduler_RunsJobRepeatedly(t *testing.T) {
	var runs atomic.Int32
	s := New(Job{
		Name:     "tick",
		Schedule: Every(5 * time.Millisecond),
		Run: func(ctx context.Context) (int, error) {
			runs.Add(1)
			return 0, nil
		},
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	job := Job{
		Name:     "slow",
		Schedule: Every(time.Hour),
		Run: func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		},
	}
	s := New(job)

	done := make(chan bool)
	go func() { done <- s.runOnce(context.Background(), job) }()
	<-started

	assert.False(t, s.runOnce(context.Background(), job))

	close(release)
	assert.True(t, <-done)
	assert.False(t, s.running.IsLocked(job.Name))
}

func TestScheduler_SurvivesFailures(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context) (int, error)
	}{
		{"error", func(ctx context.Context) (int, error) { return 0, errors.New("database is down") }},
		{"panic", func(ctx context.Context) (int, error) { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := Job{Name: tt.name, Schedule: Every(time.Hour), Run: tt.run}
			s := New(job)

			assert.NotPanics(t, func() { s.runOnce(context.Background(), job) })
			assert.False(t, s.running.IsLocked(job.Name), "lock released")
			assert.True(t, s.runOnce(context.Background(), job), "job runs again")
		})
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := New()
	assert.NotPanics(t, s.Stop)
}
