package empathy

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
)

// RecentMessage is one of the user's last messages, used for volatility and
// intensity heuristics (spec.md §4.7 step 2).
type RecentMessage struct {
	Content        string
	EmotionOrdinal float64 // signed intensity on a -3..3 scale, negative for negative emotions (set by internal/pipeline)
}

// ConversationContext is the optional mode hint from L5/L6.
type ConversationContext struct {
	Mode string // "problem_solving" overrides to solution_focused
}

// PreferenceStore persists learned EmpathyPreferences. A process-local map
// is sufficient; spec.md does not require durability across restarts.
type PreferenceStore interface {
	Get(userID, emotionKind string) (Preference, bool)
	Put(p Preference)
}

// Calibrator implements L7. One logical lock guards read-modify-write per
// user (spec.md §4.7 concurrency note).
type Calibrator struct {
	store PreferenceStore
	locks keyedLocks
}

func NewCalibrator(store PreferenceStore) *Calibrator {
	return &Calibrator{store: store, locks: newKeyedLocks()}
}

// Calibrate recommends a response style for detectedEmotion given the
// user's learned preference, recent volatility/intensity, and an optional
// conversation mode override.
func (c *Calibrator) Calibrate(userID, detectedEmotion, message string, recent []RecentMessage, convCtx *ConversationContext) Calibration {
	unlock := c.locks.lock(userID)
	defer unlock()

	baseline := baselineFor(detectedEmotion)
	recommended := baseline[0].Style
	confidence := baseline[0].Score
	reasoning := fmt.Sprintf("baseline style for %s", detectedEmotion)

	if pref, ok := c.store.Get(userID, detectedEmotion); ok && pref.Confidence > 0.5 {
		recommended = pref.PreferredStyle
		confidence = pref.Confidence
		reasoning = fmt.Sprintf("learned preference for %s (confidence %.2f)", detectedEmotion, pref.Confidence)
	}

	volatile := isVolatile(recent)
	intensity := messageIntensity(message, recent)

	switch {
	case convCtx != nil && convCtx.Mode == "problem_solving":
		recommended = StyleSolutionFocused
		reasoning = "problem-solving context overrides to solution-focused"
	case volatile:
		recommended = StyleValidationFirst
		reasoning = "emotional volatility forces validation-first"
	case intensity >= 0.8 && recommended == StyleGentleInquiry:
		recommended = StyleDirectAcknowledgment
		reasoning = "high message intensity escalates gentle inquiry to direct acknowledgment"
	}

	alternatives := alternativesFor(baseline, recommended, userID, detectedEmotion, c.store)

	return Calibration{
		RecommendedStyle: recommended,
		Confidence:       confidence,
		Reasoning:        reasoning,
		Alternatives:     alternatives,
	}
}

func baselineFor(emotionKind string) []styleScore {
	if scores, ok := baselineEffectiveness[strings.ToLower(emotionKind)]; ok {
		return scores
	}
	return defaultBaseline
}

func alternativesFor(baseline []styleScore, recommended Style, userID, emotionKind string, store PreferenceStore) []Style {
	var alts []Style
	if pref, ok := store.Get(userID, emotionKind); ok && pref.PreferredStyle != recommended {
		alts = append(alts, pref.PreferredStyle)
	}
	for _, s := range baseline {
		if s.Style == recommended {
			continue
		}
		if containsStyle(alts, s.Style) {
			continue
		}
		alts = append(alts, s.Style)
		if len(alts) >= 3 {
			break
		}
	}
	if len(alts) > 3 {
		alts = alts[:3]
	}
	return alts
}

func containsStyle(styles []Style, s Style) bool {
	for _, existing := range styles {
		if existing == s {
			return true
		}
	}
	return false
}

// isVolatile reports variance of ordinal emotion labels over the last 10
// messages exceeding 2.0 (spec.md §4.7 step 2).
func isVolatile(recent []RecentMessage) bool {
	if len(recent) < 2 {
		return false
	}
	window := recent
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	var sum float64
	for _, m := range window {
		sum += m.EmotionOrdinal
	}
	mean := sum / float64(len(window))
	var variance float64
	for _, m := range window {
		d := m.EmotionOrdinal - mean
		variance += d * d
	}
	variance /= float64(len(window))
	return variance > 2.0
}

var intensityKeywords = []string{"hate", "terrible", "awful", "furious", "desperate", "extremely", "completely", "absolutely"}
var repeatedCharsRe = regexp.MustCompile(`(.)\1{2,}`)

// messageIntensity blends keyword presence, punctuation, length, and
// word-repetition into a [0,1] heuristic (spec.md §4.7 step 2).
func messageIntensity(message string, recent []RecentMessage) float64 {
	lower := strings.ToLower(message)
	score := 0.0

	for _, kw := range intensityKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
		}
	}
	score += float64(strings.Count(message, "!")) * 0.1
	if strings.Contains(message, "???") || strings.Contains(message, "!!!") {
		score += 0.2
	}
	if len(message) > 200 {
		score += 0.2
	}
	if repeatedCharsRe.MatchString(lower) {
		score += 0.15
	}
	score += repetitionAcrossRecent(lower, recent) * 0.2

	return clampf(score, 0, 1)
}

func repetitionAcrossRecent(lower string, recent []RecentMessage) float64 {
	if len(recent) == 0 {
		return 0
	}
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0
	}
	last := recent[len(recent)-1].Content
	lastWords := strings.Fields(strings.ToLower(last))
	overlap := 0
	seen := map[string]struct{}{}
	for _, w := range lastWords {
		seen[w] = struct{}{}
	}
	for _, w := range words {
		if _, ok := seen[w]; ok {
			overlap++
		}
	}
	return math.Min(1, float64(overlap)/float64(len(words)))
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Learn updates the stored preference from observed feedback after a turn
// used usedStyle (spec.md §4.7 learn).
func (c *Calibrator) Learn(userID, emotionKind string, usedStyle Style, feedback FeedbackIndicators) {
	unlock := c.locks.lock(userID)
	defer unlock()

	effectiveness := feedback.effectiveness()
	existing, ok := c.store.Get(userID, emotionKind)
	if !ok {
		c.store.Put(Preference{
			UserID: userID, EmotionKind: emotionKind, PreferredStyle: usedStyle,
			Confidence: 0.3, Effectiveness: effectiveness, InteractionCount: 1, UpdatedAt: time.Now(),
		})
		return
	}

	existing.Effectiveness = existing.Effectiveness*(1-learningRate) + effectiveness*learningRate
	existing.InteractionCount++

	if existing.InteractionCount >= minInteractionsForConfidence && usedStyle != existing.PreferredStyle && effectiveness > existing.Effectiveness {
		existing.PreferredStyle = usedStyle
		existing.Confidence = clamp01(existing.Confidence + 0.1)
	}
	existing.UpdatedAt = time.Now()
	c.store.Put(existing)
}

// keyedLocks grants one logical mutex per key, backed by a shared map
// guarded by its own mutex.
type keyedLocks struct {
	mu    sync.Mutex
	perKey map[string]*sync.Mutex
}

func newKeyedLocks() keyedLocks {
	return keyedLocks{perKey: map[string]*sync.Mutex{}}
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.perKey[key]
	if !ok {
		m = &sync.Mutex{}
		k.perKey[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
