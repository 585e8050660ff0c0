package session

import "github.com/entrevo/interview-backend/internal/models"

// Sink receives session events for display. The live transport implements it
// by writing frames to the client; tests implement it by recording calls.
// All methods are invoked from the session's event loop, one at a time.
type Sink interface {
	// PhaseChanged reports every capture phase transition.
	PhaseChanged(phase Phase)

	// Partial carries the latest provisional fragment while listening.
	Partial(text string)

	// DraftUpdated carries the accumulated draft after each final fragment.
	DraftUpdated(draft string)

	// DraftPending surfaces the assembled draft for review on entering the
	// confirming phase.
	DraftPending(draft string)

	// Hint is a short user-facing status line ("listening", "click the mic
	// to retry", ...).
	Hint(text string)

	// QuestionChanged reports navigation to another question, together with
	// the locally held answer text for it.
	QuestionChanged(index int, answer string)

	// AnswerChanged reports the local answer for a question index changing
	// through a confirmed draft.
	AnswerChanged(index int, answer string)

	// Timers reports the per-answer and per-session elapsed seconds.
	Timers(answerSec, sessionSec int)

	// Saved reports a successful persist of the answer at index.
	Saved(index int, resp *models.Response)

	// Completed reports the interview transitioning to completed.
	Completed(iv *models.Interview)

	// InterviewUpdated carries the re-fetched interview after any persisting
	// operation.
	InterviewUpdated(iv *models.Interview)

	// CaptureUnavailable reports that no speech capability exists. Permanent
	// for the session; manual entry remains available.
	CaptureUnavailable()

	// StreamFailed reports a transcript stream error. Transient; capture can
	// be retried.
	StreamFailed(reason error)

	// Failed reports a rejected or failed operation ("save", "complete",
	// "capture", ...).
	Failed(op string, err error)
}
