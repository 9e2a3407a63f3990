package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partyup/internal/status"
	"partyup/models"
)

func newTestLeaderboard(t *testing.T) (*LeaderboardService, *EventService, *models.Event) {
	t.Helper()
	svc := newTestEventService()
	board := NewLeaderboardService(nil, svc, svc.Config)
	ev := mustCreateEvent(t, svc, CreateEventRequest{Title: "Scored"})

	applied, err := svc.ApplyAutomatic(context.Background(), ev.ID, models.StatusUpcoming, models.StatusOngoing)
	require.NoError(t, err)
	require.True(t, applied)
	return board, svc, ev
}

func TestLeaderboardService_RecordAction(t *testing.T) {
	board, _, ev := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, board.RecordAction(ctx, ev.ID, "user-1", models.ActionMediaUpload))
	require.NoError(t, board.RecordAction(ctx, ev.ID, "user-1", models.ActionComment))
	require.NoError(t, board.RecordAction(ctx, ev.ID, "user-1", models.ActionReaction))

	assert.Equal(t, int64(14), board.Score(ev.ID, "user-1"))
	assert.Equal(t, int64(0), board.Score(ev.ID, "nobody"))
}

func TestLeaderboardService_RecordAction_UnknownActionIsNoop(t *testing.T) {
	board, _, ev := newTestLeaderboard(t)

	require.NoError(t, board.RecordAction(context.Background(), ev.ID, "user-1", models.ScoreAction("SHRUG")))
	assert.Equal(t, int64(0), board.Score(ev.ID, "user-1"))
	assert.Empty(t, board.Leaderboard(ev.ID), "no entry materializes for a zero-point action")
}

func TestLeaderboardService_OrderInsensitive(t *testing.T) {
	// The same multiset of actions must converge to the same totals no
	// matter what order they land in.
	actions := []struct {
		userID string
		action models.ScoreAction
	}{
		{"alice", models.ActionMediaUpload},
		{"alice", models.ActionReaction},
		{"bob", models.ActionComment},
		{"bob", models.ActionComment},
		{"bob", models.ActionMediaUpload},
		{"carol", models.ActionReaction},
		{"carol", models.ActionReaction},
		{"alice", models.ActionComment},
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var baseline map[string]int64
	for trial := 0; trial < 5; trial++ {
		board, _, ev := newTestLeaderboard(t)

		shuffled := make([]struct {
			userID string
			action models.ScoreAction
		}, len(actions))
		copy(shuffled, actions)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for _, a := range shuffled {
			require.NoError(t, board.RecordAction(ctx, ev.ID, a.userID, a.action))
		}

		scores := map[string]int64{}
		for _, entry := range board.Leaderboard(ev.ID) {
			scores[entry.UserID] = entry.Score
		}

		if baseline == nil {
			baseline = scores
		} else {
			assert.Equal(t, baseline, scores, "trial %d diverged", trial)
		}
	}

	assert.Equal(t, int64(14), baseline["alice"])
	assert.Equal(t, int64(16), baseline["bob"])
	assert.Equal(t, int64(2), baseline["carol"])
}

func TestLeaderboardService_Ranking(t *testing.T) {
	board, _, ev := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, board.RecordAction(ctx, ev.ID, "early", models.ActionComment))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, board.RecordAction(ctx, ev.ID, "late", models.ActionComment))
	require.NoError(t, board.RecordAction(ctx, ev.ID, "top", models.ActionMediaUpload))

	ranked := board.Leaderboard(ev.ID)
	require.Len(t, ranked, 3)
	assert.Equal(t, "top", ranked[0].UserID)
	assert.Equal(t, "early", ranked[1].UserID, "ties break toward the earlier update")
	assert.Equal(t, "late", ranked[2].UserID)
}

func TestLeaderboardService_ClosedStatuses(t *testing.T) {
	svc := newTestEventService()
	board := NewLeaderboardService(nil, svc, svc.Config)
	ctx := context.Background()

	upcoming := mustCreateEvent(t, svc, CreateEventRequest{Title: "Not started"})
	err := board.RecordAction(ctx, upcoming.ID, "user-1", models.ActionComment)
	assert.ErrorIs(t, err, status.ErrEventClosedForScoring)

	cancelled := mustCreateEvent(t, svc, CreateEventRequest{Title: "Cancelled"})
	require.NoError(t, svc.Cancel(ctx, cancelled.ID, "creator-1"))
	err = board.RecordAction(ctx, cancelled.ID, "user-1", models.ActionComment)
	assert.ErrorIs(t, err, status.ErrEventClosedForScoring)

	err = board.RecordAction(ctx, "missing", "user-1", models.ActionComment)
	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestLeaderboardService_FreezeWindow(t *testing.T) {
	svc := newTestEventService()
	board := NewLeaderboardService(nil, svc, svc.Config)
	ctx := context.Background()

	ev := mustCreateEvent(t, svc, CreateEventRequest{Title: "Just ended"})

	// Ended an hour ago: OUTDATED but still inside the 24h window.
	svc.mu.Lock()
	end := time.Now().Add(-time.Hour)
	svc.events[ev.ID].Status = models.StatusOutdated
	svc.events[ev.ID].EndTime = &end
	svc.mu.Unlock()

	require.NoError(t, board.RecordAction(ctx, ev.ID, "straggler", models.ActionMediaUpload))
	assert.Equal(t, int64(10), board.Score(ev.ID, "straggler"))

	// Ended two days ago: the window has passed.
	svc.mu.Lock()
	end = time.Now().Add(-48 * time.Hour)
	svc.events[ev.ID].EndTime = &end
	svc.mu.Unlock()

	err := board.RecordAction(ctx, ev.ID, "too-late", models.ActionMediaUpload)
	assert.ErrorIs(t, err, status.ErrEventClosedForScoring)
}
