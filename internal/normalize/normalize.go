// Package normalize canonicalizes heterogeneous equipment identifiers so
// records from the catalog, tag, and financial systems can be compared.
// Every function here is pure: no side effects, no failure modes - input
// that matches no rule is returned unchanged.
package normalize

import (
	"regexp"
	"strings"

	"github.com/kestrel-rentals/crosstally/internal/model"
)

var (
	// Trailing ".0" artifact left by spreadsheet/numeric export pipelines,
	// e.g. "100.0" for catalog ID 100.
	decimalArtifact = regexp.MustCompile(`^([0-9]+)\.0+$`)

	// Runs of the same separator character ("--", "__", "  ").
	repeatedSeparators = regexp.MustCompile(`([-_./ ])[-_./ ]+`)

	// Hex-looking token: at least six hex digits including at least one
	// letter, so plain numeric IDs are left alone.
	hexToken = regexp.MustCompile(`^[0-9A-Fa-f]{6,}$`)
	hasAlpha = regexp.MustCompile(`[A-Fa-f]`)

	// Long all-hex codes are RFID EPCs; short numeric codes are printed
	// sticker labels.
	rfidCode    = regexp.MustCompile(`^[0-9A-F]{16,}$`)
	qrCode      = regexp.MustCompile(`^(QR-)?[A-Z][A-Z0-9]{5,11}$`)
	stickerCode = regexp.MustCompile(`^[0-9]{1,8}$`)
)

// Identifier canonicalizes a raw identifier string from any source.
// It is idempotent: Identifier(Identifier(x)) == Identifier(x).
func Identifier(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	s = repeatedSeparators.ReplaceAllString(s, "$1")

	if m := decimalArtifact.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if hexToken.MatchString(s) && hasAlpha.MatchString(s) {
		s = strings.ToUpper(s)
	}

	return s
}

// Kind determines the identifier kind for a canonical identifier. It is
// applied once at ingest; downstream code trusts the stored kind instead
// of re-deriving it.
func Kind(canonical string) model.IdentifierKind {
	switch {
	case canonical == "":
		return model.KindUnknown
	case strings.HasPrefix(canonical, "BULK"):
		return model.KindBulk
	case rfidCode.MatchString(canonical):
		return model.KindRFID
	case qrCode.MatchString(canonical):
		return model.KindQR
	case stickerCode.MatchString(canonical):
		return model.KindSticker
	default:
		return model.KindUnknown
	}
}
