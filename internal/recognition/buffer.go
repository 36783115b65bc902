package recognition

import "strings"

// UtteranceBuffer accumulates the final text typed during one session so
// that consecutive fragments are separated by exactly one space. It is
// owned by a single session goroutine and is not safe for concurrent use.
type UtteranceBuffer struct {
	b strings.Builder
}

// Reset empties the buffer.
func (u *UtteranceBuffer) Reset() {
	u.b.Reset()
}

// Append records fragment and returns the text to type for it: the
// fragment itself when the buffer was empty, otherwise a space followed by
// the fragment.
func (u *UtteranceBuffer) Append(fragment string) string {
	spaced := fragment
	if u.b.Len() > 0 {
		spaced = " " + fragment
	}
	u.b.WriteString(spaced)
	return spaced
}

// IsEmpty reports whether nothing was appended since the last reset.
func (u *UtteranceBuffer) IsEmpty() bool {
	return u.b.Len() == 0
}

// String returns the accumulated text.
func (u *UtteranceBuffer) String() string {
	return u.b.String()
}
