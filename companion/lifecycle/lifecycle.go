// Package lifecycle manages the time-boxed trial-to-subscription window:
// warning thresholds, expiry, and the one-shot activation acknowledgment.
package lifecycle

import (
	"time"

	"github.com/hrygo/kokoro/store"
)

// Decision is the outcome of evaluating a user's trial window for one turn.
type Decision int

const (
	// Continue lets the turn proceed with no notification.
	Continue Decision = iota
	// Warn lets the turn proceed and carries a warning threshold to announce.
	Warn
	// Expired blocks the turn; the caller presents a subscription offer.
	Expired
)

// Threshold is one trial warning level: seconds before trial end mapped to a
// localized message key.
type Threshold struct {
	Seconds    int32
	MessageKey string
}

// Thresholds is the fixed warning set, loosest first. Each level fires at
// most once per user and the recorded level only ever tightens.
var Thresholds = []Threshold{
	{Seconds: 180, MessageKey: "trial_warning_180s"},
	{Seconds: 60, MessageKey: "trial_warning_60s"},
	{Seconds: 30, MessageKey: "trial_warning_30s"},
}

// Result carries the decision and, for Warn, the threshold that fired.
type Result struct {
	Decision  Decision
	Threshold Threshold
}

// Evaluate decides whether the turn proceeds, warns, or is blocked. Active
// users always continue. For trial users the tightest threshold covering the
// remaining time fires, unless a warning at that level or tighter was already
// sent. Persisting the advanced warned level is the caller's responsibility.
func Evaluate(user *store.User, now time.Time) Result {
	if user.Status == store.SubscriptionActive {
		return Result{Decision: Continue}
	}

	remaining := user.TrialEndTs - now.Unix()
	if remaining <= 0 {
		return Result{Decision: Expired}
	}

	var fired *Threshold
	for i := range Thresholds {
		if remaining <= int64(Thresholds[i].Seconds) {
			fired = &Thresholds[i]
		}
	}
	if fired == nil {
		return Result{Decision: Continue}
	}
	if user.WarnedThresholdSec != 0 && fired.Seconds >= user.WarnedThresholdSec {
		return Result{Decision: Continue}
	}
	return Result{Decision: Warn, Threshold: *fired}
}

// NewTrialWindow returns the trial start and end timestamps for a user
// created at now.
func NewTrialWindow(now time.Time, trial time.Duration) (startTs, endTs int64) {
	return now.Unix(), now.Add(trial).Unix()
}
