package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrevo/interview-backend/internal/models"
)

// fakeDirectory is an in-memory Directory; Get hands out deep copies so the
// tracker's snapshot never aliases the backing store.
type fakeDirectory struct {
	mu         sync.Mutex
	iv         *models.Interview
	getCalls   int
	updateErr  error
	statusLog  []models.InterviewStatus
}

func newFakeDirectory(questions ...string) *fakeDirectory {
	iv := &models.Interview{
		ID:     uuid.New(),
		Title:  "backend engineer screen",
		Status: models.StatusInProgress,
	}
	for i, q := range questions {
		iv.Questions = append(iv.Questions, models.Question{
			ID:          uuid.New(),
			InterviewID: iv.ID,
			Position:    i,
			Text:        q,
		})
	}
	return &fakeDirectory{iv: iv}
}

func (d *fakeDirectory) Get(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.getCalls++
	return d.copyLocked(), nil
}

func (d *fakeDirectory) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InterviewStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	d.iv.Status = status
	d.statusLog = append(d.statusLog, status)
	return nil
}

func (d *fakeDirectory) setResponse(questionID uuid.UUID, text string) *models.Response {
	resp := &models.Response{
		ID:          uuid.New(),
		QuestionID:  questionID,
		InterviewID: d.iv.ID,
		Text:        text,
	}
	for i := range d.iv.Questions {
		if d.iv.Questions[i].ID == questionID {
			d.iv.Questions[i].Response = resp
		}
	}
	return resp
}

func (d *fakeDirectory) copyLocked() *models.Interview {
	out := *d.iv
	out.Questions = make([]models.Question, len(d.iv.Questions))
	copy(out.Questions, d.iv.Questions)
	for i := range out.Questions {
		if r := out.Questions[i].Response; r != nil {
			rc := *r
			out.Questions[i].Response = &rc
		}
	}
	return &out
}

// fakeResponder writes straight into the fake directory, mimicking the
// upsert semantics of the response service.
type fakeResponder struct {
	dir       *fakeDirectory
	gate      chan struct{} // when set, Submit blocks until the gate closes
	mu        sync.Mutex
	calls     int
	submitErr error
}

func (r *fakeResponder) Submit(ctx context.Context, questionID, interviewID uuid.UUID, text string) (*models.Response, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.submitErr != nil {
		return nil, r.submitErr
	}
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	return r.dir.setResponse(questionID, text), nil
}

func (r *fakeResponder) submitCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeTicker lets tests advance session time one tick at a time.
type fakeTicker struct {
	c chan time.Time
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{c: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}

// tick blocks until the session loop picks the tick up.
func (f *fakeTicker) tick() { f.c <- time.Time{} }

// recordingSink captures every session event for assertions.
type recordingSink struct {
	mu          sync.Mutex
	phases      []Phase
	partials    []string
	drafts      []string
	pending     []string
	hints       []string
	answers     map[int]string
	questions   []int
	timers      [][2]int
	saved       []int
	completed   int
	updated     int
	unavailable int
	streamErrs  []error
	failures    map[string][]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		answers:  make(map[int]string),
		failures: make(map[string][]error),
	}
}

func (r *recordingSink) PhaseChanged(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recordingSink) Partial(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials = append(r.partials, text)
}

func (r *recordingSink) DraftUpdated(draft string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, draft)
}

func (r *recordingSink) DraftPending(draft string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, draft)
}

func (r *recordingSink) Hint(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints = append(r.hints, text)
}

func (r *recordingSink) QuestionChanged(index int, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, index)
}

func (r *recordingSink) AnswerChanged(index int, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[index] = answer
}

func (r *recordingSink) Timers(answerSec, sessionSec int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers = append(r.timers, [2]int{answerSec, sessionSec})
}

func (r *recordingSink) Saved(index int, resp *models.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, index)
}

func (r *recordingSink) Completed(iv *models.Interview) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingSink) InterviewUpdated(iv *models.Interview) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated++
}

func (r *recordingSink) CaptureUnavailable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable++
}

func (r *recordingSink) StreamFailed(reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamErrs = append(r.streamErrs, reason)
}

func (r *recordingSink) Failed(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = append(r.failures[op], err)
}

func (r *recordingSink) lastPhase() (Phase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.phases) == 0 {
		return PhaseIdle, false
	}
	return r.phases[len(r.phases)-1], true
}

func (r *recordingSink) pendingDrafts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pending...)
}

func (r *recordingSink) failuresFor(op string) []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.failures[op]...)
}

func (r *recordingSink) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recordingSink) completedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func (r *recordingSink) unavailableCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unavailable
}

func (r *recordingSink) streamFailures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.streamErrs...)
}
