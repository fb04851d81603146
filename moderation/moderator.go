package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator masks forbidden words in chat messages before they are stored or pushed.
// A nil Moderator, or one built from an empty word list, leaves every text untouched.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// NewModerator builds the Aho-Corasick automaton from the normalized word list.
// Words that normalize to nothing (pure punctuation) are dropped.
func NewModerator(words []string, censoredChar rune) (*Moderator, error) {
	patterns := lo.UniqBy(
		lo.FilterMap(words, func(word string, _ int) ([]rune, bool) {
			normalized := normalizeRunes([]rune(word))
			return normalized, len(normalized) > 0
		}),
		func(pattern []rune) string { return string(pattern) },
	)
	if len(patterns) == 0 {
		return &Moderator{censoredChar: censoredChar}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// Censor replaces every rune of a forbidden word, including the noise hidden inside it,
// and returns how many occurrences were found. Spacing and length are preserved.
func (m *Moderator) Censor(original string) (string, int) {
	if m == nil || m.matcher == nil || original == "" {
		return original, 0
	}

	normalized, origIdx := normalize(original)
	if len(normalized) == 0 {
		return original, 0
	}

	terms := m.matcher.MultiPatternSearch(normalized, false)
	if len(terms) == 0 {
		return original, 0
	}

	runes := []rune(original)
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[term.Pos]; i <= origIdx[end-1]; i++ {
			runes[i] = m.censoredChar
		}
	}
	return string(runes), len(terms)
}

// normalize keeps, for every searchable rune, its position in the original text.
func normalize(input string) ([]rune, []int) {
	runes := []rune(input)
	normalized := make([]rune, 0, len(runes))
	origIdx := make([]int, 0, len(runes))
	for i, r := range runes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet speak back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
