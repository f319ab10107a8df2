/*
Package censor masks configured words in message content before it is persisted.

Matching runs an Aho-Corasick automaton over a normalized copy of the text (lower-cased, common
character substitutions folded, punctuation skipped) and masks the corresponding runes of the
original, so spacing and untouched characters survive.
*/
package censor

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// DefaultMask replaces every rune of a matched word.
const DefaultMask = '*'

// Censor is safe for concurrent use once built. A nil *Censor masks nothing.
type Censor struct {
	machine *goahocorasick.Machine
	mask    rune
}

// New builds a Censor for words. Blank entries are ignored; with no usable words it returns nil.
func New(words []string, mask rune) (*Censor, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		norm, _ := normalize(strings.TrimSpace(w))
		if len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}

	return &Censor{machine: m, mask: mask}, nil
}

// Mask returns s with every configured word replaced by the mask rune.
func (c *Censor) Mask(s string) string {
	if c == nil || s == "" {
		return s
	}

	norm, origIdx := normalize(s)
	if len(norm) == 0 {
		return s
	}

	spans := c.machine.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return s
	}

	runes := []rune(s)
	for _, span := range spans {
		start, end := span.Pos, span.Pos+len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}

		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			runes[i] = c.mask
		}
	}

	return string(runes)
}

// normalize folds s into its searchable form and records, for each kept rune, its index in s.
func normalize(s string) ([]rune, []int) {
	orig := []rune(s)
	norm := make([]rune, 0, len(orig))
	idx := make([]int, 0, len(orig))

	for i, r := range orig {
		r = fold(r)
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		idx = append(idx, i)
	}

	return norm, idx
}

func fold(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
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
