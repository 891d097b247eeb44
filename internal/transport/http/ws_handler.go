package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/domain"
)

// QuizTaker is the part of the quiz service a browser attempt needs.
type QuizTaker interface {
	Join(ctx context.Context, code string) (app.JoinedQuiz, error)
	StartSession(quiz domain.Quiz, opts ...app.SessionOption) (*app.TakeSession, error)
}

// WSHandler bridges one TakeSession per websocket connection, so a browser view can drive
// an attempt held by this process.
type WSHandler struct {
	service  QuizTaker
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*app.TakeSession
}

func NewWSHandler(service QuizTaker) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*app.TakeSession),
	}
}

// Active reports how many attempts are connected.
func (h *WSHandler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// joinedPayload describes the quiz without its answer key.
type joinedPayload struct {
	ConnectionID string            `json:"connectionId"`
	QuizID       string            `json:"quizId"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Status       domain.QuizStatus `json:"status"`
	Duration     int               `json:"duration"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      time.Time         `json:"endTime"`
	Questions    []questionView    `json:"questions"`
}

type questionView struct {
	ID      string              `json:"id"`
	Text    string              `json:"text"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options,omitempty"`
	Points  int                 `json:"points"`
}

func newJoinedPayload(connID string, joined app.JoinedQuiz) joinedPayload {
	quiz := joined.Quiz
	questions := make([]questionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, questionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
			Points:  q.Worth(),
		})
	}
	return joinedPayload{
		ConnectionID: connID,
		QuizID:       quiz.ID,
		Name:         quiz.Name,
		Description:  quiz.Description,
		Status:       joined.Status,
		Duration:     quiz.Duration,
		StartTime:    quiz.StartTime,
		EndTime:      quiz.EndTime,
		Questions:    questions,
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into one quiz attempt.
// Closing the connection abandons an unsubmitted attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	session, err := h.service.StartSession(joined.Quiz)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	connID := uuid.NewString()
	h.track(connID, session)
	defer h.untrack(connID)
	defer session.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws %s write error: %v", connID, err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: newJoinedPayload(connID, joined)}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if !enqueue(send, writerDone, outboundMessage[any]{Type: "state", Payload: snap}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, session, inbound); err != nil {
			if !enqueue(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}) {
				break
			}
		}
	}

	if state := session.Snapshot().State; !state.Terminal() {
		log.Printf("ws %s: attempt of quiz %s abandoned in state %s", connID, joined.Quiz.ID, state)
	}
	cancelCtx()
	session.Close()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer and reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

var errUnsupported = errors.New("unsupported message type")

func (h *WSHandler) dispatch(ctx context.Context, session *app.TakeSession, msg inboundMessage) error {
	switch msg.Type {
	case "start":
		return session.Start(ctx)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		return session.SelectAnswer(payload.QuestionID, payload.Value)
	case "mark", "navigate":
		var payload indexPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errors.New("invalid index payload")
		}
		if msg.Type == "mark" {
			return session.ToggleMark(payload.Index)
		}
		session.Navigate(payload.Index)
		return nil
	case "next":
		session.Next()
		return nil
	case "prev":
		session.Prev()
		return nil
	case "requestSubmit":
		return session.RequestSubmit()
	case "cancelSubmit":
		session.CancelSubmit()
		return nil
	case "confirmSubmit":
		// The outcome arrives as a state update.
		go func() {
			if err := session.ConfirmSubmit(context.WithoutCancel(ctx)); err != nil {
				log.Printf("submit quiz %s: %v", session.Quiz().ID, err)
			}
		}()
		return nil
	default:
		return errUnsupported
	}
}

func (h *WSHandler) track(connID string, session *app.TakeSession) {
	h.mu.Lock()
	h.sessions[connID] = session
	h.mu.Unlock()
}

func (h *WSHandler) untrack(connID string) {
	h.mu.Lock()
	delete(h.sessions, connID)
	h.mu.Unlock()
}
