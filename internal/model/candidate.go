package model

import (
	"fmt"
	"sort"
)

// MatchCandidate represents how well a single equipment class matches a
// catalog entity. The Signals map records each weighted term's
// contribution so a reviewer can see why a score came out as it did.
type MatchCandidate struct {
	Signals       map[string]float64
	ClassID       string
	ClassName     string
	Type          CorrelationType
	Score         float64 // 0-100
	QuantityDelta int
}

// Validate ensures the candidate has valid data.
func (c *MatchCandidate) Validate() error {
	if c.ClassID == "" {
		return fmt.Errorf("candidate class ID is required")
	}
	if c.Score < 0 || c.Score > 100 {
		return fmt.Errorf("candidate score must be between 0 and 100, got %.2f", c.Score)
	}
	return nil
}

// MatchCandidates is a slice of MatchCandidate that supports sorting and
// utility methods.
type MatchCandidates []MatchCandidate

// Len implements sort.Interface.
func (m MatchCandidates) Len() int {
	return len(m)
}

// Less implements sort.Interface - higher scores come first.
func (m MatchCandidates) Less(i, j int) bool {
	if m[i].Score != m[j].Score {
		return m[i].Score > m[j].Score
	}
	// Equal scores sort by class ID for deterministic re-runs.
	return m[i].ClassID < m[j].ClassID
}

// Swap implements sort.Interface.
func (m MatchCandidates) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Sort sorts the candidates by score in descending order.
func (m MatchCandidates) Sort() {
	sort.Sort(m)
}

// Top returns the highest-scoring candidate, or nil if empty.
func (m MatchCandidates) Top() *MatchCandidate {
	if len(m) == 0 {
		return nil
	}
	m.Sort()
	return &m[0]
}

// TopN returns the N highest-scoring candidates.
func (m MatchCandidates) TopN(n int) MatchCandidates {
	if n <= 0 {
		return MatchCandidates{}
	}
	m.Sort()
	if n > len(m) {
		n = len(m)
	}
	result := make(MatchCandidates, n)
	copy(result, m[:n])
	return result
}
