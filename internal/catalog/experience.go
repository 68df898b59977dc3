package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// ExperienceLevel is a bucket derived from the low end of years_of_experience.
// Values are lower-case.
type ExperienceLevel string

const (
	EntryLevel  ExperienceLevel = "entry level"
	MidLevel    ExperienceLevel = "mid level"
	SeniorLevel ExperienceLevel = "senior level"
)

// ParseExperienceLevel normalizes a requested level. An empty request is a
// validation error; an unrecognized label is accepted and simply matches
// nothing.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	l := strings.ToLower(strings.TrimSpace(s))
	if l == "" {
		return "", invalid("experience_level", "parameter is required")
	}
	return ExperienceLevel(l), nil
}

// Title returns the level with every word capitalized, e.g. "Mid Level".
func (l ExperienceLevel) Title() string {
	var b strings.Builder
	prevLetter := false
	for _, r := range string(l) {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// ExperienceBucket derives the bucket for a "<low>-<high>" range. ok is false
// when the value has no '-', the low end is not an integer, or the low end
// falls below every bucket.
func ExperienceBucket(years string) (level ExperienceLevel, ok bool) {
	lowStr, _, found := strings.Cut(years, "-")
	if !found {
		return "", false
	}
	low, err := strconv.Atoi(strings.TrimSpace(lowStr))
	if err != nil {
		return "", false
	}
	switch {
	case low == 1 || low == 2:
		return EntryLevel, true
	case low > 2 && low < 5:
		return MidLevel, true
	case low >= 5:
		return SeniorLevel, true
	}
	return "", false
}
