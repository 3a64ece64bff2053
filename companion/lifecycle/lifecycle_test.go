package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/kokoro/store"
)

func trialUser(remaining int64, warned int32) *store.User {
	now := time.Unix(1_700_000_000, 0)
	return &store.User{
		ID:                 1,
		Status:             store.SubscriptionTrial,
		TrialStartTs:       now.Unix() - 1800,
		TrialEndTs:         now.Unix() + remaining,
		WarnedThresholdSec: warned,
	}
}

func evaluateAt(user *store.User) Result {
	return Evaluate(user, time.Unix(1_700_000_000, 0))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		remaining int64
		warned    int32
		decision  Decision
		threshold int32
	}{
		{"far from expiry continues", 600, 0, Continue, 0},
		{"first warning at loosest level", 170, 0, Warn, 180},
		{"tightest covering level fires", 25, 0, Warn, 30},
		{"mid window fires 60", 50, 180, Warn, 60},
		{"already warned at same level", 170, 180, Continue, 0},
		{"already warned tighter", 50, 30, Continue, 0},
		{"no re-warn after tightest", 10, 30, Continue, 0},
		{"zero remaining expires", 0, 30, Expired, 0},
		{"past expiry expires", -5, 0, Expired, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateAt(trialUser(tt.remaining, tt.warned))
			require.Equal(t, tt.decision, got.Decision)
			if tt.decision == Warn {
				require.Equal(t, tt.threshold, got.Threshold.Seconds)
			}
		})
	}
}

func TestEvaluateActiveUserAlwaysContinues(t *testing.T) {
	user := trialUser(-3600, 0)
	user.Status = store.SubscriptionActive
	require.Equal(t, Continue, evaluateAt(user).Decision)
}

// A trial with 25 seconds left warns at the 30-second level; once the trial
// end passes, evaluation expires instead of warning again.
func TestEvaluateWarnThenExpire(t *testing.T) {
	user := trialUser(25, 0)

	got := evaluateAt(user)
	require.Equal(t, Warn, got.Decision)
	require.Equal(t, int32(30), got.Threshold.Seconds)
	require.Equal(t, "trial_warning_30s", got.Threshold.MessageKey)
	user.WarnedThresholdSec = got.Threshold.Seconds

	later := time.Unix(1_700_000_000, 0).Add(35 * time.Second)
	require.Equal(t, Expired, Evaluate(user, later).Decision)
}

// Thresholds fire loosest to tightest across successive evaluations and
// never repeat a level already sent.
func TestEvaluateThresholdProgression(t *testing.T) {
	levels := []struct {
		remaining int64
		want      int32
	}{
		{170, 180},
		{55, 60},
		{20, 30},
	}
	var warned int32
	for _, step := range levels {
		got := evaluateAt(trialUser(step.remaining, warned))
		require.Equal(t, Warn, got.Decision)
		require.Equal(t, step.want, got.Threshold.Seconds)
		warned = got.Threshold.Seconds
	}
}

func TestNewTrialWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	start, end := NewTrialWindow(now, 30*time.Minute)
	require.Equal(t, now.Unix(), start)
	require.Equal(t, now.Unix()+1800, end)
}
