package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// postcodeRe matches a canonical UK postcode, e.g. "BS1 4DJ", "SW1A 1AA", "M1 1AE".
var postcodeRe = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]? \d[A-Z]{2}$`)

// inwardLen is the fixed length of the inward code ("4DJ").
const inwardLen = 3

// NormalizePostcode uppercases raw, drops all whitespace, re-inserts a single
// space before the inward code and validates the result. Input must be ASCII.
// NormalizePostcode(NormalizePostcode(x)) == NormalizePostcode(x).
func NormalizePostcode(raw string) (string, error) {
	// Unicode case mapping folds some letters onto ASCII ("ſ" -> "S").
	for i := 0; i < len(raw); i++ {
		if raw[i] >= utf8.RuneSelf {
			return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
		}
	}

	compact := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(compact) <= inwardLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}

	pc := compact[:len(compact)-inwardLen] + " " + compact[len(compact)-inwardLen:]
	if !postcodeRe.MatchString(pc) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return pc, nil
}

// NormalizePostcodes normalizes every entry, dropping duplicates while
// keeping first-seen order. The first invalid entry fails the whole call.
func NormalizePostcodes(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		pc, err := NormalizePostcode(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[pc]; ok {
			continue
		}
		seen[pc] = struct{}{}
		out = append(out, pc)
	}
	return out, nil
}

// SplitPostcode returns the outward and inward codes of a normalized postcode.
func SplitPostcode(normalized string) (outward, inward string) {
	outward, inward, _ = strings.Cut(normalized, " ")
	return outward, inward
}
