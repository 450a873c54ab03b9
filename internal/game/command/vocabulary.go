// Package command validates typed input against the words the player may
// currently use: skill commands during the player phase, or a single
// defensive word while a reaction window is open.
package command

import (
	"fmt"
	"strings"
)

// Vocabulary is an ordered, case-folded set of accepted words.
// Order is declaration order; it decides which word supplies the ghost text
// when several share a prefix.
type Vocabulary struct {
	words      []string
	set        map[string]bool
	terminator string
}

// NewVocabulary builds a Vocabulary from skill command words plus a terminator.
//
// Precondition: words are single, non-empty tokens; terminator may be empty.
// Postcondition: Returns an error on empty or duplicate words (after case-folding).
func NewVocabulary(words []string, terminator string) (*Vocabulary, error) {
	v := &Vocabulary{set: make(map[string]bool, len(words)+1)}
	for _, w := range words {
		if err := v.add(w); err != nil {
			return nil, err
		}
	}
	if t := normalize(terminator); t != "" {
		if err := v.add(t); err != nil {
			return nil, fmt.Errorf("terminator: %w", err)
		}
		v.terminator = t
	}
	return v, nil
}

func (v *Vocabulary) add(word string) error {
	w := normalize(word)
	if w == "" {
		return fmt.Errorf("vocabulary word must not be empty")
	}
	if v.set[w] {
		return fmt.Errorf("duplicate vocabulary word %q", w)
	}
	v.set[w] = true
	v.words = append(v.words, w)
	return nil
}

// Contains reports whether s matches a word exactly (case-insensitive, trimmed).
func (v *Vocabulary) Contains(s string) bool {
	return v.set[normalize(s)]
}

// IsTerminator reports whether s is the turn-ending word.
func (v *Vocabulary) IsTerminator(s string) bool {
	return v.terminator != "" && normalize(s) == v.terminator
}

// Terminator returns the normalized terminator word, or "".
func (v *Vocabulary) Terminator() string {
	return v.terminator
}

// Match returns the first word having prefix as a prefix.
//
// Postcondition: Returns ("", false) iff no word starts with prefix.
func (v *Vocabulary) Match(prefix string) (string, bool) {
	p := normalize(prefix)
	for _, w := range v.words {
		if strings.HasPrefix(w, p) {
			return w, true
		}
	}
	return "", false
}

// Words returns the words in declaration order.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
