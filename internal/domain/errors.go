package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz code is unknown or the quiz is not available.
	ErrQuizNotFound = errors.New("quiz not found or not available")
	// ErrQuizNotActive is returned when starting a quiz whose window has closed.
	ErrQuizNotActive = errors.New("quiz is not active")
	// ErrInvalidCode is returned for malformed join codes.
	ErrInvalidCode = errors.New("invalid quiz code")
	// ErrUnauthorized is returned when the backend rejects the stored credentials.
	ErrUnauthorized = errors.New("session expired, please log in again")
	// ErrNotLoggedIn is returned by operations that need a principal.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrForbidden is returned when the principal has the wrong role.
	ErrForbidden = errors.New("operation not permitted for this role")
	// ErrCorruptPrincipal indicates an unreadable persisted identity record.
	ErrCorruptPrincipal = errors.New("corrupt stored principal")
	// ErrQuestionNotFound indicates an answer for a question the quiz does not have.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions is a precondition violation: a session needs at least one question.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrSessionNotStarted is returned when submitting before the attempt started.
	ErrSessionNotStarted = errors.New("quiz attempt not started")
	// ErrSessionClosed is returned for edits after the attempt was submitted.
	ErrSessionClosed = errors.New("quiz attempt already submitted")
	// ErrKeyNotFound is returned by durable storage for a missing key.
	ErrKeyNotFound = errors.New("storage key not found")
	// ErrIndexOutOfRange is returned by draft edits addressing a missing question or option.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoTriviaQuestions indicates the trivia source returned nothing for the criteria.
	ErrNoTriviaQuestions = errors.New("no questions found with the selected criteria")
)
