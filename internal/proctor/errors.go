package proctor

import "errors"

var (
	// ErrCameraDenied indicates webcam permission was refused; the session
	// stays not started and permission may be requested again.
	ErrCameraDenied = errors.New("webcam access is required to start the exam")
	// ErrNotActive indicates the operation requires an in-progress session.
	ErrNotActive = errors.New("session is not in progress")
	// ErrAlreadyStarted indicates permission was granted for a running or finished session.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrUnanswered indicates a submit attempt with blank answers.
	ErrUnanswered = errors.New("Please answer all questions before submitting")
	// ErrUnknownQuestion indicates an answer for a question outside the exam.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrSessionNotFound indicates no live session has the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoQuestions indicates a session was created without questions.
	ErrNoQuestions = errors.New("session requires at least one question")
	// ErrInvalidBudget indicates a non-positive time budget.
	ErrInvalidBudget = errors.New("time budget must be positive")
)
