package services

import (
	"strings"

	"github.com/varekai/opsmind/internal/core/domain"
)

const (
	// similarityThreshold: Jaccard word-set similarity above which a new
	// thought counts as a repetition of a recent one.
	similarityThreshold = 0.7
	// similarityWindow: how many recent thoughts to compare against.
	similarityWindow = 3
	// stagnationWindow and stagnationDistinct: with this many steps on the
	// transcript, at most this many distinct thoughts among the last
	// stagnationWindow means the run is cycling.
	stagnationWindow   = 5
	stagnationDistinct = 2
)

// LoopGuard detects repetitive or exhausted reasoning. LLM loops tend to
// cycle between a small set of restated thoughts without tool progress; both
// triggers catch that cheaply, without semantic modeling. The thresholds are
// engine constants so behavior stays predictable across tasks.
type LoopGuard struct{}

// NewLoopGuard returns a guard. Stateless; safe for concurrent use.
func NewLoopGuard() *LoopGuard {
	return &LoopGuard{}
}

// ShouldForceStop reports whether the candidate thought, taken together with
// the transcript, indicates a stuck run. Either trigger is sufficient.
func (g *LoopGuard) ShouldForceStop(transcript []domain.ReActStep, candidateThought string) bool {
	if g.similarityTriggered(transcript, candidateThought) {
		return true
	}
	return g.stagnationTriggered(transcript)
}

func (g *LoopGuard) similarityTriggered(transcript []domain.ReActStep, candidate string) bool {
	start := len(transcript) - similarityWindow
	if start < 0 {
		start = 0
	}
	for _, step := range transcript[start:] {
		if jaccardSimilarity(candidate, step.Thought) > similarityThreshold {
			return true
		}
	}
	return false
}

func (g *LoopGuard) stagnationTriggered(transcript []domain.ReActStep) bool {
	if len(transcript) < stagnationWindow {
		return false
	}
	distinct := map[string]struct{}{}
	for _, step := range transcript[len(transcript)-stagnationWindow:] {
		distinct[step.Thought] = struct{}{}
	}
	return len(distinct) <= stagnationDistinct
}

// jaccardSimilarity computes intersection/union over whitespace-tokenized,
// lowercased word sets.
func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
