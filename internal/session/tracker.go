package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/entrevo/interview-backend/internal/models"
)

// Tracker owns the per-session answer state for one interview: the
// authoritative saved answers (from the directory) and the locally held,
// possibly unsaved, answer text per question index. It computes completion
// eligibility and performs the explicit save and complete operations.
//
// The local map is keyed by question position because questions are addressed
// positionally during a session.
type Tracker struct {
	directory Directory
	responder Responder

	mu        sync.RWMutex
	interview *models.Interview
	local     map[int]string
}

// NewTracker seeds the local answer map from each question's persisted
// response, so a resumed session shows previously saved answers.
func NewTracker(directory Directory, responder Responder, iv *models.Interview) *Tracker {
	t := &Tracker{
		directory: directory,
		responder: responder,
		interview: iv,
		local:     make(map[int]string),
	}
	t.seedLocked()
	return t
}

func (t *Tracker) seedLocked() {
	for i := range t.interview.Questions {
		if text := t.interview.Questions[i].AnswerText(); strings.TrimSpace(text) != "" {
			t.local[i] = text
		}
	}
}

// Interview returns the current interview snapshot.
func (t *Tracker) Interview() *models.Interview {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interview
}

// Len returns the number of questions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.interview.Questions)
}

// Local returns the locally held answer text for a question index.
func (t *Tracker) Local(index int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local[index]
}

// Locals returns a copy of the local answer map.
func (t *Tracker) Locals() map[int]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int]string, len(t.local))
	for i, text := range t.local {
		out[i] = text
	}
	return out
}

// SetLocal stores answer text for a question index. Empty or whitespace-only
// text removes the entry.
func (t *Tracker) SetLocal(index int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		delete(t.local, index)
		return
	}
	t.local[index] = text
}

// AllAnswered reports whether every question holds a non-empty answer, either
// locally or persisted. For a completed interview only persisted responses
// count.
func (t *Tracker) AllAnswered() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	completed := t.interview.Status == models.StatusCompleted
	for i := range t.interview.Questions {
		saved := strings.TrimSpace(t.interview.Questions[i].AnswerText()) != ""
		if completed {
			if !saved {
				return false
			}
			continue
		}
		if !saved && strings.TrimSpace(t.local[i]) == "" {
			return false
		}
	}
	return true
}

// Save persists the local answer at index and then re-fetches the interview;
// the directory is the source of truth after a save, not an optimistic local
// merge. Fails with ErrEmptyAnswer before any persistence call when there is
// nothing to save.
func (t *Tracker) Save(ctx context.Context, index int) (*models.Response, error) {
	t.mu.RLock()
	if index < 0 || index >= len(t.interview.Questions) {
		t.mu.RUnlock()
		return nil, ErrQuestionOutOfRange
	}
	text := strings.TrimSpace(t.local[index])
	questionID := t.interview.Questions[index].ID
	interviewID := t.interview.ID
	t.mu.RUnlock()

	if text == "" {
		return nil, ErrEmptyAnswer
	}

	resp, err := t.responder.Submit(ctx, questionID, interviewID, text)
	if err != nil {
		return nil, fmt.Errorf("submit response: %w", err)
	}

	if err := t.Refresh(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}

// Complete transitions the interview to completed. Both guards are local: no
// directory call is made unless the interview is in progress and every
// question is answered.
func (t *Tracker) Complete(ctx context.Context) error {
	t.mu.RLock()
	status := t.interview.Status
	id := t.interview.ID
	t.mu.RUnlock()

	if status != models.StatusInProgress {
		return ErrNotInProgress
	}
	if !t.AllAnswered() {
		return ErrIncompleteAnswers
	}

	if err := t.directory.UpdateStatus(ctx, id, models.StatusCompleted); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return t.Refresh(ctx)
}

// Refresh re-fetches the interview and folds saved answers back into the
// local map. Locally typed answers for other questions are kept; a save never
// loses unsaved text elsewhere in the session.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.RLock()
	id := t.interview.ID
	t.mu.RUnlock()

	iv, err := t.directory.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("refresh interview: %w", err)
	}

	t.mu.Lock()
	t.interview = iv
	t.seedLocked()
	t.mu.Unlock()
	return nil
}
