package session

import (
	"strings"

	"github.com/entrevo/interview-backend/internal/transcript"
)

// DraftBuffer accumulates final transcript fragments into one candidate
// answer for the current capture attempt, and keeps the most recent partial
// fragment around for live display. Partials are never persisted.
type DraftBuffer struct {
	draft   strings.Builder
	partial string
}

// Append feeds one fragment into the buffer. Final fragments are concatenated
// onto the draft exactly as produced, with no separator; non-final fragments
// replace the live partial.
func (b *DraftBuffer) Append(f transcript.Fragment) {
	if f.Final {
		b.draft.WriteString(f.Text)
		b.partial = ""
		return
	}
	b.partial = f.Text
}

// Snapshot returns the trimmed draft text. Whitespace-only drafts count as no
// answer.
func (b *DraftBuffer) Snapshot() string {
	return strings.TrimSpace(b.draft.String())
}

// Partial returns the latest unconfirmed partial fragment.
func (b *DraftBuffer) Partial() string { return b.partial }

// Reset clears both the draft and the live partial.
func (b *DraftBuffer) Reset() {
	b.draft.Reset()
	b.partial = ""
}
