// Package match implements the entity matcher: confidence-scored
// correlation of catalog entities to tracked equipment classes.
package match

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	namePunctuation = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)

	// Tokens that identify a specific product line regardless of how the
	// rest of the name is spelled. Shared manufacturer tokens are strong
	// evidence two records describe the same equipment.
	manufacturerTokens = map[string]bool{
		"honda": true, "stihl": true, "genie": true, "jlg": true,
		"kubota": true, "bobcat": true, "wacker": true, "husqvarna": true,
		"makita": true, "dewalt": true, "toro": true, "vermeer": true,
		"multiquip": true, "sullair": true, "skyjack": true, "terex": true,
	}

	// Size/capacity tokens like "5000", "26ft", "185cfm", "3in".
	sizeToken = regexp.MustCompile(`^[0-9]+(?:ft|in|kw|cfm|gal|lb|hp|w)?$`)
)

// normalizeName lowercases a display name and strips punctuation so the
// same equipment named "Generator - 5000W (Honda)" and "HONDA generator
// 5000w" compares well.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = namePunctuation.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// tokens splits a normalized name into its words.
func tokens(name string) []string {
	n := normalizeName(name)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// NameSimilarity scores how alike two display names are, in [0,1]. It
// takes the better of an edit-distance ratio and a token-overlap ratio:
// edit distance handles misspellings, token overlap handles reordered
// words ("5000w generator honda" vs "honda generator 5000w").
func NameSimilarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	dist := levenshtein.ComputeDistance(na, nb)
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	editRatio := 1 - float64(dist)/float64(longest)
	if editRatio < 0 {
		editRatio = 0
	}

	overlap := tokenOverlap(tokens(na), tokens(nb))

	if overlap > editRatio {
		return overlap
	}
	return editRatio
}

// tokenOverlap is the Jaccard ratio of two token sets.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	shared := 0
	union := len(set)
	for _, t := range b {
		if set[t] {
			shared++
			set[t] = false // count each shared token once
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// CategoryAlignment scores how well the catalog's declared category lines
// up with the class's business category, in [0,1]. Exact match is 1,
// partial token overlap is half credit.
func CategoryAlignment(catalogCategory, catalogSubcategory, classCategory string) float64 {
	cc := normalizeName(classCategory)
	if cc == "" {
		return 0
	}
	if normalizeName(catalogCategory) == cc || normalizeName(catalogSubcategory) == cc {
		return 1
	}
	if tokenOverlap(tokens(catalogCategory), tokens(classCategory)) > 0 ||
		tokenOverlap(tokens(catalogSubcategory), tokens(classCategory)) > 0 {
		return 0.5
	}
	return 0
}

// DomainBonus scores business-rule evidence shared between two names:
// a common manufacturer token is full credit, a common size/capacity
// token half credit.
func DomainBonus(catalogName, className string) float64 {
	ca, cb := tokens(catalogName), tokens(className)
	if len(ca) == 0 || len(cb) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(cb))
	for _, t := range cb {
		setB[t] = true
	}

	sharedSize := false
	for _, t := range ca {
		if !setB[t] {
			continue
		}
		if manufacturerTokens[t] {
			return 1
		}
		if sizeToken.MatchString(t) {
			sharedSize = true
		}
	}
	if sharedSize {
		return 0.5
	}
	return 0
}

// QuantityConsistency scores agreement between the catalog's on-hand
// quantity and the number of tracked items in a class, in [0,1]. Equal
// counts score 1; the score decays with the absolute delta relative to
// the larger count.
func QuantityConsistency(catalogQty, classCount int) float64 {
	if catalogQty < 0 {
		catalogQty = 0
	}
	delta := catalogQty - classCount
	if delta < 0 {
		delta = -delta
	}
	if delta == 0 {
		return 1
	}
	larger := catalogQty
	if classCount > larger {
		larger = classCount
	}
	score := 1 - float64(delta)/float64(larger)
	if score < 0 {
		return 0
	}
	return score
}
