// Package match ranks other users by how close their published narratives
// are to the caller's.
package match

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scoring policy.
const (
	TagWeight      = 0.7
	TextWeight     = 0.3
	TextSaturation = 12
	MinTokenRunes  = 4
)

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) intersect(other set) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for v := range small {
		if large.has(v) {
			n++
		}
	}
	return n
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Signal is one side of a comparison: normalized tags plus text tokens.
type Signal struct {
	tags   set
	tokens set
}

func NewSignal(tags []string, text string) Signal {
	return Signal{tags: NormalizeTags(tags), tokens: Tokenize(text)}
}

// Tags returns the normalized tag set in sorted order.
func (s Signal) Tags() []string {
	return s.tags.sorted()
}

// NormalizeTag trims, drops one leading '#' and lowercases.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	return strings.ToLower(strings.TrimSpace(tag))
}

func NormalizeTags(tags []string) set {
	out := make(set, len(tags))
	for _, t := range tags {
		if t = NormalizeTag(t); t != "" {
			out.add(t)
		}
	}
	return out
}

// Tokenize lowercases text, removes every rune that is not a letter, digit
// or whitespace, and keeps the distinct words of at least MinTokenRunes runes.
func Tokenize(text string) set {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	out := make(set)
	for _, tok := range strings.Fields(b.String()) {
		if utf8.RuneCountInString(tok) >= MinTokenRunes {
			out.add(tok)
		}
	}
	return out
}

// TagScore is the Jaccard index of the two tag sets. Two empty sets score 0.
func TagScore(a, b Signal) float64 {
	inter := a.tags.intersect(b.tags)
	union := len(a.tags) + len(b.tags) - inter
	if union < 1 {
		union = 1
	}
	return float64(inter) / float64(union)
}

// TextScore saturates at TextSaturation shared tokens.
func TextScore(a, b Signal) float64 {
	return min(1, float64(a.tokens.intersect(b.tokens))/TextSaturation)
}

// Score combines both components into [0,1]. It is symmetric and depends
// only on set contents.
func Score(a, b Signal) float64 {
	return TagWeight*TagScore(a, b) + TextWeight*TextScore(a, b)
}
