package match

import (
	"github.com/kestrel-rentals/crosstally/internal/config"
	"github.com/kestrel-rentals/crosstally/internal/model"
	"github.com/kestrel-rentals/crosstally/internal/normalize"
)

// exactScore is the fixed confidence awarded when normalized identifiers
// match exactly.
const exactScore = 100

// Matcher correlates one catalog entity against candidate equipment
// classes. It holds only configuration, so a single matcher is safe to
// reuse across a whole batch run.
type Matcher struct {
	weights      config.MatchWeights
	thresholds   config.MatchThresholds
	alternateCap int
}

// New creates a matcher from engine configuration.
func New(cfg config.Config) *Matcher {
	return &Matcher{
		weights:      cfg.Weights,
		thresholds:   cfg.Thresholds,
		alternateCap: cfg.AlternateCap,
	}
}

// Result is the matcher's output for one catalog entity: the best
// candidate as a correlation entry (nil when there were no candidate
// classes at all) plus ranked alternates for manual review.
type Result struct {
	Best       *model.CorrelationEntry
	Alternates model.MatchCandidates
}

// Match scores the catalog entity against every candidate class and
// classifies the best one. It is a pure function of its inputs and the
// configured weights; re-running it with the same data always produces
// the same verdict.
func (m *Matcher) Match(entity model.CatalogEntity, classes []model.EquipmentClass) Result {
	if len(classes) == 0 {
		return Result{}
	}

	canonical := normalize.Identifier(entity.EntityID)

	candidates := make(model.MatchCandidates, 0, len(classes))
	for _, class := range classes {
		// Identifier exact-match short-circuits the composite score.
		if canonical != "" && normalize.Identifier(class.ClassID) == canonical {
			return Result{
				Best: &model.CorrelationEntry{
					CatalogEntityID: canonical,
					ClassID:         class.ClassID,
					Type:            model.CorrelationExact,
					Confidence:      exactScore,
					QuantityDelta:   entity.QuantityOnHand - class.ItemCount,
				},
			}
		}
		candidates = append(candidates, m.score(entity, class))
	}

	top := candidates.Top()
	best := &model.CorrelationEntry{
		CatalogEntityID: canonical,
		ClassID:         top.ClassID,
		Type:            m.classify(top.Score),
		Confidence:      top.Score,
		QuantityDelta:   top.QuantityDelta,
	}
	if best.Type == model.CorrelationRejected {
		// Rejected verdicts keep no class claim; the candidate list holds
		// what was considered.
		best.ClassID = ""
	}

	alternates := candidates.TopN(m.alternateCap + 1)
	if len(alternates) > 0 {
		alternates = alternates[1:] // drop the winner, already in Best
	}

	return Result{Best: best, Alternates: alternates}
}

// score computes the weighted composite score for one candidate class.
// Signals that are unavailable for this pair degrade to zero weight and
// the remaining weights are renormalized, so a missing category can lower
// precision but never fails the match.
func (m *Matcher) score(entity model.CatalogEntity, class model.EquipmentClass) model.MatchCandidate {
	signals := make(map[string]float64, 4)
	totalWeight := 0.0
	weightedSum := 0.0

	addSignal := func(name string, available bool, weight, value float64) {
		if !available || weight <= 0 {
			return
		}
		signals[name] = value
		totalWeight += weight
		weightedSum += weight * value
	}

	addSignal("name",
		entity.DisplayName != "" && class.DisplayName != "",
		m.weights.Name,
		NameSimilarity(entity.DisplayName, class.DisplayName))

	addSignal("category",
		(entity.Category != "" || entity.Subcategory != "") && class.Category != "",
		m.weights.Category,
		CategoryAlignment(entity.Category, entity.Subcategory, class.Category))

	addSignal("quantity",
		entity.QuantityOnHand > 0 || class.ItemCount > 0,
		m.weights.Quantity,
		QuantityConsistency(entity.QuantityOnHand, class.ItemCount))

	addSignal("domain",
		entity.DisplayName != "" && class.DisplayName != "",
		m.weights.DomainBonus,
		DomainBonus(entity.DisplayName, class.DisplayName))

	score := 0.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight * 100
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return model.MatchCandidate{
		ClassID:       class.ClassID,
		ClassName:     class.DisplayName,
		Score:         score,
		Type:          m.classify(score),
		QuantityDelta: entity.QuantityOnHand - class.ItemCount,
		Signals:       signals,
	}
}

// classify maps a composite score onto a correlation type using the
// configured thresholds.
func (m *Matcher) classify(score float64) model.CorrelationType {
	switch {
	case score >= m.thresholds.AutoAccept:
		return model.CorrelationClassOnly
	case score >= m.thresholds.ManualReview:
		return model.CorrelationLowConfidence
	default:
		return model.CorrelationRejected
	}
}
