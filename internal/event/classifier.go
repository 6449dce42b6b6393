package event

import "strings"

// Occasion classifies the social context of an event. It is derived from
// the event title and location only, and drives outfit relevance downstream.
type Occasion string

const (
	OccasionWork   Occasion = "work"
	OccasionSocial Occasion = "social"
	OccasionFormal Occasion = "formal"
	OccasionSport  Occasion = "sport"
	OccasionCasual Occasion = "casual"
)

// occasionRule holds the keyword sets for one occasion category.
type occasionRule struct {
	occasion      Occasion
	titleWords    []string
	locationWords []string
}

// occasionRules is checked in order, first match wins. Formal must stay
// ahead of social: "wedding reception" has to classify as formal even
// though "reception" is a social keyword.
var occasionRules = []occasionRule{
	{
		occasion:      OccasionFormal,
		titleWords:    []string{"wedding", "gala", "funeral", "ceremony", "banquet", "black tie", "graduation", "opera", "formal"},
		locationWords: []string{"ballroom", "cathedral", "chapel", "country club"},
	},
	{
		occasion:      OccasionWork,
		titleWords:    []string{"meeting", "standup", "stand-up", "1:1", "sync", "review", "interview", "presentation", "client", "sprint", "retro", "demo", "offsite", "all hands", "work"},
		locationWords: []string{"office", "conference room", "coworking", "hq", "boardroom"},
	},
	{
		occasion:      OccasionSport,
		titleWords:    []string{"gym", "workout", "yoga", "run", "training", "match", "tennis", "swim", "hike", "climbing", "pilates", "cycling", "soccer", "basketball"},
		locationWords: []string{"stadium", "court", "pitch", "track", "pool", "fitness"},
	},
	{
		occasion:      OccasionSocial,
		titleWords:    []string{"dinner", "lunch", "brunch", "party", "drinks", "date", "coffee", "birthday", "bbq", "barbecue", "concert", "movie", "reception", "hangout", "picnic"},
		locationWords: []string{"restaurant", "bar", "cafe", "pub", "club", "bistro"},
	},
}

// ClassifyOccasion derives the occasion for an event from its title and
// optional location. Title keywords are tested first across all categories
// in priority order, then location keywords in the same order. Events that
// match nothing are casual.
func ClassifyOccasion(title, location string) Occasion {
	t := strings.ToLower(strings.TrimSpace(title))
	l := strings.ToLower(strings.TrimSpace(location))

	for _, rule := range occasionRules {
		if containsAny(t, rule.titleWords) {
			return rule.occasion
		}
	}
	if l != "" {
		for _, rule := range occasionRules {
			if containsAny(l, rule.locationWords) {
				return rule.occasion
			}
		}
	}
	return OccasionCasual
}

func containsAny(s string, words []string) bool {
	if s == "" {
		return false
	}
	for _, w := range words {
		if containsWord(s, w) {
			return true
		}
	}
	return false
}

// containsWord reports whether w occurs in s on word boundaries. Keywords
// may be multi-word phrases; a match must not butt against a letter or digit
// on either side, so "work" does not match inside "workout" and "run" does
// not match inside "brunch".
func containsWord(s, w string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(w)
		if !isWordByte(s, start-1) && !isWordByte(s, end) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
