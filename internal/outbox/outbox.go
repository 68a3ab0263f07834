// Package outbox queues user-facing messages produced by the core until
// the presentation layer is ready to show them.
package outbox

import "sync"

// CelebrationCap bounds the pending celebration queue.
const CelebrationCap = 25

// Celebration event types.
const (
	TypeLines100       = "lines100"
	TypeLanguageUnlock = "languageUnlock"
	TypeLevelUp        = "levelUp"
	TypeStreak         = "streak"
	TypeAchievement    = "achievement"
	TypeChallenge      = "challenge"
	TypePomodoro       = "pomodoro"
)

// Effects understood by the dashboard.
const (
	EffectConfetti  = "confetti"
	EffectFireworks = "fireworks"
	EffectSparkle   = "sparkle"
)

// Event is one celebration request.
type Event struct {
	Type              string         `json:"type"`
	Message           string         `json:"message"`
	Effect            string         `json:"effect"`
	HighlightSelector string         `json:"highlightSelector,omitempty"`
	Detail            map[string]any `json:"detail,omitempty"`
}

// Severity of a Notice.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
)

// Notice is a plain informational or warning message.
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Outbox holds pending celebrations and notices. It is safe for
// concurrent use.
type Outbox struct {
	mu           sync.Mutex
	ready        bool
	celebrations []Event
	notices      []Notice
	dropped      int
}

// New returns an empty outbox that is not yet ready.
func New() *Outbox {
	return &Outbox{}
}

// Celebrate queues e, dropping the oldest pending event when full.
func (o *Outbox) Celebrate(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.celebrations = append(o.celebrations, e)
	if over := len(o.celebrations) - CelebrationCap; over > 0 {
		o.celebrations = append(o.celebrations[:0:0], o.celebrations[over:]...)
		o.dropped += over
	}
}

// Notify queues a notice.
func (o *Outbox) Notify(sev Severity, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, Notice{Severity: sev, Message: msg})
}

// MarkReady signals that the presentation layer can receive messages.
func (o *Outbox) MarkReady() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = true
}

// Ready reports whether MarkReady was called.
func (o *Outbox) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// Drain returns and clears everything pending. Before MarkReady it
// returns nothing and keeps the queues intact.
func (o *Outbox) Drain() ([]Event, []Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.ready {
		return nil, nil
	}
	events, notices := o.celebrations, o.notices
	o.celebrations, o.notices = nil, nil
	return events, notices
}

// Pending returns the number of queued celebrations and notices.
func (o *Outbox) Pending() (celebrations, notices int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.celebrations), len(o.notices)
}

// Dropped returns how many celebrations were discarded for space.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
