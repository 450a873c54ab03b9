package command

import "unicode"

// Letter is one typed character and whether it matches the target word.
type Letter struct {
	Char    rune
	Correct bool
}

// Feedback describes how the current buffer lines up against a target word.
type Feedback struct {
	// Target is the word being typed toward, or "" when nothing matches.
	Target string
	// Letters are the typed characters, each marked against Target.
	Letters []Letter
	// Ghost is the untyped remainder of Target.
	Ghost string
}

// buildFeedback marks input against target letter by letter.
func buildFeedback(input, target string) Feedback {
	fb := Feedback{Target: target}
	in := []rune(input)
	tg := []rune(target)
	for i, ch := range in {
		fb.Letters = append(fb.Letters, Letter{Char: ch, Correct: i < len(tg) && tg[i] == ch})
	}
	if len(in) < len(tg) {
		fb.Ghost = string(tg[len(in):])
	}
	return fb
}

// Render returns the buffer with mistyped letters bracketed and the ghost
// remainder lower-cased after a bar, e.g. "SL|ash" or "S[x]".
func (f Feedback) Render() string {
	var b []rune
	for _, l := range f.Letters {
		if l.Correct {
			b = append(b, unicode.ToUpper(l.Char))
			continue
		}
		b = append(b, '[', l.Char, ']')
	}
	if f.Ghost != "" {
		b = append(b, '|')
		b = append(b, []rune(f.Ghost)...)
	}
	return string(b)
}

