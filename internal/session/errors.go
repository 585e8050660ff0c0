package session

import "errors"

var (
	// ErrEmptyAnswer is returned when a save or confirm is attempted with no
	// answer text. Purely local validation; no persistence call is made.
	ErrEmptyAnswer = errors.New("answer is empty")

	// ErrIncompleteAnswers is returned when completion is attempted before
	// every question has a saved or locally-held answer.
	ErrIncompleteAnswers = errors.New("not all questions have been answered")

	// ErrSubmitting is returned when a save or complete is attempted while
	// another one is still in flight.
	ErrSubmitting = errors.New("a save or complete is already in flight")

	// ErrNotInProgress is returned when a mutating operation targets an
	// interview that is not in the in_progress state.
	ErrNotInProgress = errors.New("interview is not in progress")

	// ErrQuestionOutOfRange is returned for navigation or save targeting an
	// index outside the question list.
	ErrQuestionOutOfRange = errors.New("question index out of range")
)
