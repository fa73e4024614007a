// Package tracker owns per-region alert state: the current level, its audit
// history, and the transition protocol that debounces downgrades. All level
// changes flow through Assess; nothing else mutates region state.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
)

// ErrOutOfOrderUpdate marks an update whose timestamp does not strictly
// increase for its region. The update is discarded without mutating state.
var ErrOutOfOrderUpdate = errors.New("out of order update")

// RegionSnapshot is a read-only copy of one region's state, safe to hand to
// the dashboard layer. History is append-only and time-ordered.
type RegionSnapshot struct {
	Region         string                   `json:"region"`
	Level          domain.AlertLevel        `json:"level"`
	LevelEnteredAt time.Time                `json:"level_entered_at"`
	LastScore      domain.RiskScore         `json:"last_score"`
	LastUpdate     time.Time                `json:"last_update"`
	LikelyDisease  string                   `json:"likely_disease,omitempty"`
	History        []domain.TransitionEvent `json:"history"`
}

// regionState is the mutable state for one region, guarded by its own mutex
// so updates to different regions proceed in parallel while updates to the
// same region serialize (the transition function is order-dependent).
type regionState struct {
	mu sync.Mutex

	region         string
	level          domain.AlertLevel
	levelEnteredAt time.Time
	lastScore      domain.RiskScore
	lastUpdate     time.Time
	likelyDisease  string
	history        []domain.TransitionEvent

	// Downgrade debounce: pendingSince is the start of the current
	// uninterrupted run of candidates below the held level; pendingLevel is
	// the highest severity seen during that run, which is what a commit
	// downgrades to.
	pendingActive bool
	pendingLevel  domain.AlertLevel
	pendingSince  time.Time
}

// Tracker maintains alert state for all known regions. Regions are created
// on first assessment and retained for the process lifetime for audit.
type Tracker struct {
	classifier domain.Classifier
	dwell      time.Duration

	mu      sync.RWMutex
	regions map[string]*regionState
}

// New creates a Tracker. dwell is the minimum duration a lower-severity
// condition must persist before a downgrade commits; it must be positive.
func New(classifier domain.Classifier, dwell time.Duration) (*Tracker, error) {
	if dwell <= 0 {
		return nil, fmt.Errorf("tracker: dwell duration %s must be positive", dwell)
	}
	return &Tracker{
		classifier: classifier,
		dwell:      dwell,
		regions:    make(map[string]*regionState),
	}, nil
}

// Assess runs one scored assessment through the transition protocol:
// classify the score against the region's current level, commit upgrades
// immediately, debounce downgrades behind the dwell window, and append a
// TransitionEvent on commit. Returns the committed level and, when a
// transition committed, its event.
//
// Timestamps must strictly increase per region; a late or duplicate
// timestamp returns ErrOutOfOrderUpdate and leaves state untouched.
func (t *Tracker) Assess(score domain.RiskScore, likelyDisease string) (domain.AlertLevel, *domain.TransitionEvent, error) {
	state := t.regionFor(score.Region, score.Timestamp)

	state.mu.Lock()
	defer state.mu.Unlock()

	if !score.Timestamp.After(state.lastUpdate) {
		return state.level, nil, fmt.Errorf("%w: region %q at %s, last update %s",
			ErrOutOfOrderUpdate, score.Region,
			score.Timestamp.Format(time.RFC3339), state.lastUpdate.Format(time.RFC3339))
	}

	candidate := t.classifier.Classify(state.level, score.Score)

	var event *domain.TransitionEvent
	switch {
	case candidate > state.level:
		// Upgrades commit immediately and cancel any pending downgrade.
		event = state.commit(candidate, score)
	case candidate == state.level:
		state.pendingActive = false
	default:
		event = t.debounceDowngrade(state, candidate, score)
	}

	state.lastScore = score
	state.lastUpdate = score.Timestamp
	if likelyDisease != "" {
		state.likelyDisease = likelyDisease
	}
	return state.level, event, nil
}

// debounceDowngrade handles a candidate below the held level. The dwell
// window runs from the first candidate of the current lower-severity run;
// any candidate at or above the held level elsewhere resets it. If the run
// later contains a higher (still lower-than-held) severity, the eventual
// commit targets that higher level — the region provably stayed at or below
// it for the whole run.
func (t *Tracker) debounceDowngrade(state *regionState, candidate domain.AlertLevel, score domain.RiskScore) *domain.TransitionEvent {
	if !state.pendingActive {
		state.pendingActive = true
		state.pendingLevel = candidate
		state.pendingSince = score.Timestamp
		return nil
	}
	if candidate > state.pendingLevel {
		state.pendingLevel = candidate
	}
	if score.Timestamp.Sub(state.pendingSince) < t.dwell {
		return nil
	}
	return state.commit(state.pendingLevel, score)
}

// commit performs a validated level change, stamps the entry time, appends
// the audit event, and clears any pending downgrade.
func (s *regionState) commit(to domain.AlertLevel, score domain.RiskScore) *domain.TransitionEvent {
	event := domain.NewTransitionEvent(s.region, score.Timestamp, s.level, to, score.Score)
	s.history = append(s.history, event)
	s.level = to
	s.levelEnteredAt = score.Timestamp
	s.pendingActive = false
	return &event
}

// regionFor returns the state for a region, creating it at NORMAL on first
// sight. Created regions are never destroyed.
func (t *Tracker) regionFor(region string, firstSeen time.Time) *regionState {
	t.mu.RLock()
	state, ok := t.regions[region]
	t.mu.RUnlock()
	if ok {
		return state
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok = t.regions[region]; ok {
		return state
	}
	state = &regionState{
		region:         region,
		level:          domain.LevelNormal,
		levelEnteredAt: firstSeen,
	}
	t.regions[region] = state
	return state
}

// Snapshot returns a copy of one region's state.
func (t *Tracker) Snapshot(region string) (RegionSnapshot, bool) {
	t.mu.RLock()
	state, ok := t.regions[region]
	t.mu.RUnlock()
	if !ok {
		return RegionSnapshot{}, false
	}
	return state.snapshot(), true
}

// Snapshots returns copies of all region states in unspecified order.
func (t *Tracker) Snapshots() []RegionSnapshot {
	t.mu.RLock()
	states := make([]*regionState, 0, len(t.regions))
	for _, state := range t.regions {
		states = append(states, state)
	}
	t.mu.RUnlock()

	out := make([]RegionSnapshot, 0, len(states))
	for _, state := range states {
		out = append(out, state.snapshot())
	}
	return out
}

// LevelCounts returns the number of regions currently at each level.
func (t *Tracker) LevelCounts() map[domain.AlertLevel]int {
	counts := make(map[domain.AlertLevel]int, 4)
	for _, snap := range t.Snapshots() {
		counts[snap.Level]++
	}
	return counts
}

func (s *regionState) snapshot() RegionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]domain.TransitionEvent, len(s.history))
	copy(history, s.history)

	return RegionSnapshot{
		Region:         s.region,
		Level:          s.level,
		LevelEnteredAt: s.levelEnteredAt,
		LastScore:      s.lastScore,
		LastUpdate:     s.lastUpdate,
		LikelyDisease:  s.likelyDisease,
		History:        history,
	}
}
