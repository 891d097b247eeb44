package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-portal-client/internal/domain"
)

// SessionState is the phase of one timed attempt.
type SessionState int

const (
	StateInstructions SessionState = iota
	StateInProgress
	StateConfirmingSubmit
	StateSubmitting
	StateSubmitted
	StateExpired
)

var sessionStateNames = map[SessionState]string{
	StateInstructions:     "instructions",
	StateInProgress:       "in_progress",
	StateConfirmingSubmit: "confirming_submit",
	StateSubmitting:       "submitting",
	StateSubmitted:        "submitted",
	StateExpired:          "expired",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the attempt is over.
func (s SessionState) Terminal() bool {
	return s == StateSubmitted || s == StateExpired
}

// Submitter delivers a finished attempt to the backend.
type Submitter interface {
	SubmitQuiz(ctx context.Context, submission domain.Submission) error
}

// SessionSnapshot is a copy of the session state safe to hand to views.
type SessionSnapshot struct {
	QuizID           string            `json:"quizId"`
	State            SessionState      `json:"state"`
	CurrentIndex     int               `json:"currentIndex"`
	QuestionCount    int               `json:"questionCount"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Answers          map[string]string `json:"answers"`
	Marked           []int             `json:"marked"`
	Answered         int               `json:"answered"`
	Expired          bool              `json:"expired"`
	LastError        string            `json:"lastError,omitempty"`
}

// DefaultDurationMinutes applies when a quiz carries no duration.
const DefaultDurationMinutes = 30

type SessionOption func(*TakeSession)

// WithClock replaces the wall clock and countdown ticker.
func WithClock(clock Clock) SessionOption {
	return func(s *TakeSession) { s.clock = clock }
}

// WithDuration overrides the quiz duration, in minutes.
func WithDuration(minutes int) SessionOption {
	return func(s *TakeSession) {
		if minutes > 0 {
			s.remaining = minutes * 60
		}
	}
}

// TakeSession drives one timed attempt from the instruction screen to submission.
// Submission is at most once: a second submit while one is in flight is a no-op, and the
// countdown stops for good at the first submission attempt.
type TakeSession struct {
	quiz      domain.Quiz
	userID    string
	submitter Submitter
	clock     Clock

	mu            sync.Mutex
	state         SessionState
	current       int
	answers       map[string]string
	marked        map[int]struct{}
	remaining     int
	startedAt     time.Time
	expired       bool
	countdownDone bool
	lastErr       error
	stop          chan struct{}
	stopOnce      sync.Once
	subscribers   map[chan SessionSnapshot]struct{}
}

// NewTakeSession prepares an attempt. The quiz must have at least one question.
func NewTakeSession(quiz domain.Quiz, userID string, submitter Submitter, opts ...SessionOption) (*TakeSession, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	duration := quiz.Duration
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	s := &TakeSession{
		quiz:        quiz,
		userID:      userID,
		submitter:   submitter,
		clock:       SystemClock{},
		state:       StateInstructions,
		answers:     make(map[string]string),
		marked:      make(map[int]struct{}),
		remaining:   duration * 60,
		stop:        make(chan struct{}),
		subscribers: make(map[chan SessionSnapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Quiz returns the quiz being taken.
func (s *TakeSession) Quiz() domain.Quiz {
	return s.quiz
}

// CurrentQuestion returns the question under the pointer and its index.
func (s *TakeSession) CurrentQuestion() (int, domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.quiz.Questions[s.current]
}

// Start leaves the instruction screen and starts the one-second countdown. The countdown
// stops when ctx is done, on Close, or at the first submission attempt.
func (s *TakeSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInstructions {
		return nil
	}
	s.state = StateInProgress
	s.startedAt = s.clock.Now()
	go s.runCountdown(ctx, s.clock.NewTicker(time.Second))
	s.broadcastLocked()
	return nil
}

func (s *TakeSession) runCountdown(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C():
			if s.tick() {
				s.onTimeExpired(ctx)
				return
			}
		}
	}
}

// tick advances the countdown and reports whether time just ran out.
func (s *TakeSession) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdownDone || (s.state != StateInProgress && s.state != StateConfirmingSubmit) {
		return false
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.countdownDone = true
		return true
	}
	s.broadcastLocked()
	return false
}

// onTimeExpired forces submission without asking, superseding any pending confirmation.
// A failure reaches subscribers as the snapshot's LastError.
func (s *TakeSession) onTimeExpired(ctx context.Context) {
	_ = s.submit(ctx, true)
}

// SelectAnswer records value as the answer to questionID. Last write wins.
func (s *TakeSession) SelectAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return domain.ErrSessionClosed
	}
	if !s.hasQuestion(questionID) {
		return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	if s.answers[questionID] == value {
		return nil
	}
	s.answers[questionID] = value
	s.broadcastLocked()
	return nil
}

// ToggleMark flips the review flag of the question at index. It never affects scoring.
func (s *TakeSession) ToggleMark(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return domain.ErrSessionClosed
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return nil
	}
	if _, ok := s.marked[index]; ok {
		delete(s.marked, index)
	} else {
		s.marked[index] = struct{}{}
	}
	s.broadcastLocked()
	return nil
}

// Navigate moves the pointer, clamping index into range, and returns the new index.
func (s *TakeSession) Navigate(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return s.current
	}
	last := len(s.quiz.Questions) - 1
	switch {
	case index < 0:
		index = 0
	case index > last:
		index = last
	}
	if index != s.current {
		s.current = index
		s.broadcastLocked()
	}
	return s.current
}

// Next and Prev step the pointer by one.
func (s *TakeSession) Next() int { return s.step(1) }
func (s *TakeSession) Prev() int { return s.step(-1) }

func (s *TakeSession) step(delta int) int {
	s.mu.Lock()
	target := s.current + delta
	s.mu.Unlock()
	return s.Navigate(target)
}

// RequestSubmit opens the confirmation step. It is a no-op once submission has begun.
func (s *TakeSession) RequestSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateInstructions:
		return domain.ErrSessionNotStarted
	case StateInProgress:
		s.state = StateConfirmingSubmit
		s.broadcastLocked()
	}
	return nil
}

// CancelSubmit returns from the confirmation step to the attempt.
func (s *TakeSession) CancelSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConfirmingSubmit {
		s.state = StateInProgress
		s.broadcastLocked()
	}
}

// ConfirmSubmit sends the answers. Failures return the session to InProgress for a manual
// retry; the countdown is not restarted.
func (s *TakeSession) ConfirmSubmit(ctx context.Context) error {
	return s.submit(ctx, false)
}

func (s *TakeSession) submit(ctx context.Context, expired bool) error {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting, StateSubmitted, StateExpired:
		s.mu.Unlock()
		return nil
	case StateInstructions:
		s.mu.Unlock()
		return domain.ErrSessionNotStarted
	}
	if expired {
		s.expired = true
	}
	s.state = StateSubmitting
	s.stopCountdownLocked()
	submission := s.buildSubmissionLocked()
	s.broadcastLocked()
	s.mu.Unlock()

	err := s.submitter.SubmitQuiz(ctx, submission)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateInProgress
		s.lastErr = err
		s.broadcastLocked()
		return fmt.Errorf("submit quiz: %w", err)
	}
	s.lastErr = nil
	if s.expired {
		s.state = StateExpired
	} else {
		s.state = StateSubmitted
	}
	s.broadcastLocked()
	return nil
}

// Submission builds the payload the attempt would submit right now.
func (s *TakeSession) Submission() domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildSubmissionLocked()
}

func (s *TakeSession) buildSubmissionLocked() domain.Submission {
	marked := make([]domain.MarkedOption, 0, len(s.quiz.Questions))
	for _, q := range s.quiz.Questions {
		option := domain.MarkedOption{Question: q.ID}
		if v, ok := s.answers[q.ID]; ok && v != "" {
			value := v
			option.SelectedOption = &value
		}
		marked = append(marked, option)
	}
	timeTaken := 0
	if !s.startedAt.IsZero() {
		timeTaken = int(s.clock.Now().Sub(s.startedAt) / time.Minute)
	}
	return domain.Submission{
		UserID:        s.userID,
		QuizID:        s.quiz.ID,
		MarkedOptions: marked,
		TimeTaken:     timeTaken,
	}
}

// Snapshot returns the current state.
func (s *TakeSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, primed with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *TakeSession) Subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close abandons the attempt: the countdown stops and subscribers are released.
// Unsubmitted answers are discarded.
func (s *TakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *TakeSession) stopCountdownLocked() {
	s.countdownDone = true
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *TakeSession) hasQuestion(id string) bool {
	for _, q := range s.quiz.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (s *TakeSession) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow view never blocks the countdown.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *TakeSession) snapshotLocked() SessionSnapshot {
	answers := make(map[string]string, len(s.answers))
	answered := 0
	for k, v := range s.answers {
		answers[k] = v
		if v != "" {
			answered++
		}
	}
	marked := make([]int, 0, len(s.marked))
	for idx := range s.marked {
		marked = append(marked, idx)
	}
	sort.Ints(marked)

	snap := SessionSnapshot{
		QuizID:           s.quiz.ID,
		State:            s.state,
		CurrentIndex:     s.current,
		QuestionCount:    len(s.quiz.Questions),
		RemainingSeconds: s.remaining,
		Answers:          answers,
		Marked:           marked,
		Answered:         answered,
		Expired:          s.expired,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
