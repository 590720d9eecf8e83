package contextswitch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RecentEmotion is one labeled emotion for a prior user turn. MemoryLookup
// returns them oldest first, most recent last; the detector compares the
// first entry with the last.
type RecentEmotion struct {
	Label string
}

// MemoryLookup is the narrow L3 read surface the detector needs. Concrete
// callers wire this to internal/memory.
type MemoryLookup interface {
	RecentUserEmotions(ctx context.Context, userID string, limit int) ([]RecentEmotion, error)
	DetectContradiction(ctx context.Context, userID, topic string) (dissimilarity float64, found bool, err error)
}

// Detector tracks one ContextSnapshot per user and emits switches for each
// inbound message.
type Detector struct {
	mu        sync.Mutex
	snapshots map[string]*ContextSnapshot
	memory    MemoryLookup
}

// NewDetector constructs a Detector. memory may be nil, in which case the
// topic and emotional signals are skipped (only mode/urgency/intent run).
func NewDetector(memory MemoryLookup) *Detector {
	return &Detector{snapshots: map[string]*ContextSnapshot{}, memory: memory}
}

// Detect computes up to five switches for newMessage against the user's
// running snapshot, then updates the snapshot. All internal failures are
// swallowed; a turn must never fail because detection failed (spec.md §4.6).
func (d *Detector) Detect(ctx context.Context, userID, newMessage string) (switches []Switch) {
	defer func() {
		if r := recover(); r != nil {
			switches = nil
		}
	}()

	d.mu.Lock()
	prior, ok := d.snapshots[userID]
	if !ok {
		prior = &ContextSnapshot{Mode: ModeCasual, Intent: IntentGeneral, ContextConfidence: 0.3, UpdatedAt: time.Now()}
	}
	snapshot := *prior
	d.mu.Unlock()

	var out []Switch

	if s, ok := d.detectTopic(ctx, userID, newMessage, snapshot); ok {
		out = append(out, s)
	}
	snapshot.PrimaryTopic = extractPrimaryTopic(newMessage)
	if s, ok := d.detectEmotional(ctx, userID, snapshot); ok {
		out = append(out, s)
	}

	newMode := classifyMode(newMessage)
	if s, ok := detectMode(snapshot.Mode, newMode); ok {
		out = append(out, s)
	}
	snapshot.Mode = newMode

	newUrgency := scoreUrgency(newMessage)
	if s, ok := detectUrgency(snapshot.Urgency, newUrgency); ok {
		out = append(out, s)
	}
	snapshot.Urgency = newUrgency

	newIntent := classifyIntent(newMessage)
	if s, ok := detectIntent(snapshot.Intent, newIntent); ok {
		out = append(out, s)
	}
	snapshot.Intent = newIntent

	snapshot.ContextConfidence = clamp01(snapshot.ContextConfidence + 0.1)
	snapshot.UpdatedAt = time.Now()

	d.mu.Lock()
	d.snapshots[userID] = &snapshot
	d.mu.Unlock()

	return out
}

func (d *Detector) detectTopic(ctx context.Context, userID, newMessage string, snapshot ContextSnapshot) (Switch, bool) {
	if d.memory == nil {
		return Switch{}, false
	}
	primary := extractPrimaryTopic(newMessage)
	var dissimilarity float64
	if dis, found, err := d.memory.DetectContradiction(ctx, userID, primary); err == nil && found {
		dissimilarity = dis
	} else if snapshot.PrimaryTopic != "" && primary != "" {
		dissimilarity = topicDissimilarity(snapshot.PrimaryTopic, primary)
	} else {
		return Switch{}, false
	}
	strength, ok := bucketDissimilarity(dissimilarity)
	if !ok {
		return Switch{}, false
	}
	return Switch{
		Kind:        KindTopic,
		Strength:    strength,
		Confidence:  dissimilarity,
		Description: fmt.Sprintf("topic shifted from %q to %q", snapshot.PrimaryTopic, primary),
		Adaptation:  adaptationByKind[KindTopic],
	}, true
}

func bucketDissimilarity(d float64) (Strength, bool) {
	switch {
	case d >= 0.7:
		return StrengthDramatic, true
	case d >= 0.5:
		return StrengthStrong, true
	case d >= 0.3:
		return StrengthModerate, true
	default:
		return "", false
	}
}

// topicDissimilarity is a deterministic token-overlap fallback used when
// the memory store offers no contradiction signal: 1 - Jaccard similarity
// of the two topics' lowercased word sets.
func topicDissimilarity(prior, current string) float64 {
	a := wordSet(prior)
	b := wordSet(current)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection, union := 0, len(b)
	for w := range a {
		union++
		if _, ok := b[w]; ok {
			intersection++
			union--
		}
	}
	if union == 0 {
		return 0
	}
	return 1 - float64(intersection)/float64(union)
}

func wordSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[strings.Trim(w, ".,!?;:\"'()")] = struct{}{}
	}
	return out
}

// extractPrimaryTopic picks the longest content word as a cheap proxy for
// the message's primary subject.
func extractPrimaryTopic(message string) string {
	best := ""
	for _, w := range strings.Fields(message) {
		cleaned := strings.Trim(strings.ToLower(w), ".,!?;:\"'()")
		if len(cleaned) > len(best) {
			best = cleaned
		}
	}
	return best
}

func (d *Detector) detectEmotional(ctx context.Context, userID string, snapshot ContextSnapshot) (Switch, bool) {
	if d.memory == nil {
		return Switch{}, false
	}
	recent, err := d.memory.RecentUserEmotions(ctx, userID, 5)
	if err != nil || len(recent) < 2 {
		return Switch{}, false
	}
	first := emotionOrdinal[recent[0].Label]
	last := emotionOrdinal[recent[len(recent)-1].Label]
	d2 := last - first
	magnitude := absF(d2) / 2
	strength, ok := bucketMagnitude(magnitude)
	if !ok {
		return Switch{}, false
	}
	return Switch{
		Kind:        KindEmotional,
		Strength:    strength,
		Confidence:  magnitude,
		Description: fmt.Sprintf("emotional tone moved from %s to %s", recent[0].Label, recent[len(recent)-1].Label),
		Adaptation:  adaptationByKind[KindEmotional],
	}, true
}

func bucketMagnitude(m float64) (Strength, bool) {
	switch {
	case m >= 0.7:
		return StrengthDramatic, true
	case m >= 0.5:
		return StrengthStrong, true
	case m >= 0.3:
		return StrengthModerate, true
	default:
		return "", false
	}
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

var modeKeywords = map[Mode][]string{
	ModeProblemSolving: {"fix", "error", "broken", "help me solve", "how do i", "troubleshoot", "not working"},
	ModeSupport:        {"feeling", "upset", "struggling", "hard time", "overwhelmed", "anxious", "sad"},
	ModeEducational:    {"explain", "what is", "how does", "teach me", "learn about", "difference between"},
}

func classifyMode(message string) Mode {
	lower := strings.ToLower(message)
	for _, mode := range []Mode{ModeProblemSolving, ModeSupport, ModeEducational} {
		for _, kw := range modeKeywords[mode] {
			if strings.Contains(lower, kw) {
				return mode
			}
		}
	}
	return ModeCasual
}

func detectMode(prior, current Mode) (Switch, bool) {
	if prior == current {
		return Switch{}, false
	}
	dist := modeDistance[prior][current]
	if dist < modeDistanceThreshold {
		return Switch{}, false
	}
	strength, _ := bucketMagnitude(dist)
	return Switch{
		Kind:        KindConversationMode,
		Strength:    strength,
		Confidence:  dist,
		Description: fmt.Sprintf("conversation mode shifted from %s to %s", prior, current),
		Adaptation:  adaptationByKind[KindConversationMode],
	}, true
}

func scoreUrgency(message string) float64 {
	lower := strings.ToLower(message)
	score := 0.0
	switch {
	case containsAny(lower, "urgent", "emergency", "asap"):
		score += 0.6
	case containsAny(lower, "soon", "important"):
		score += 0.3
	case containsAny(lower, "whenever", "maybe"):
		score -= 0.2
	}
	if strings.Contains(message, "!!!") || strings.Contains(message, "??") {
		score += 0.3
	} else if strings.Contains(message, "!") {
		score += 0.2
	}
	return clamp01(score)
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func detectUrgency(prior, current float64) (Switch, bool) {
	delta := absF(current - prior)
	if delta < 0.3 {
		return Switch{}, false
	}
	strength, _ := bucketMagnitude(delta)
	return Switch{
		Kind:        KindUrgency,
		Strength:    strength,
		Confidence:  delta,
		Description: fmt.Sprintf("urgency moved from %.2f to %.2f", prior, current),
		Adaptation:  adaptationByKind[KindUrgency],
	}, true
}

func classifyIntent(message string) Intent {
	lower := strings.ToLower(message)
	switch {
	case strings.HasSuffix(strings.TrimSpace(message), "?") || strings.Contains(lower, "what") || strings.Contains(lower, "how") || strings.Contains(lower, "why"):
		return IntentQuestion
	case containsAny(lower, "can you help", "i need help", "help me"):
		return IntentSeekingHelp
	case containsAny(lower, "i'm so frustrated", "this is so annoying", "i hate", "ugh"):
		return IntentVenting
	case containsAny(lower, "hi", "hello", "hey"):
		return IntentGreeting
	case containsAny(lower, "i think", "i feel", "i've been", "so i"):
		return IntentSharing
	default:
		return IntentGeneral
	}
}

func detectIntent(prior, current Intent) (Switch, bool) {
	if prior == current {
		return Switch{}, false
	}
	return Switch{
		Kind:        KindIntent,
		Strength:    StrengthModerate,
		Confidence:  0.5,
		Description: fmt.Sprintf("intent shifted from %s to %s", prior, current),
		Adaptation:  adaptationByKind[KindIntent],
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
