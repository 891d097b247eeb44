package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/domain"
	"quiz-portal-client/internal/infra/memory"
)

type recordingAPI struct {
	app.QuizAPI

	mu          sync.Mutex
	submissions []domain.Submission
}

func (a *recordingAPI) SubmitQuiz(_ context.Context, submission domain.Submission) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submissions = append(a.submissions, submission)
	return nil
}

func (a *recordingAPI) Submissions() []domain.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Submission(nil), a.submissions...)
}

type staticLoader map[string]domain.Quiz

func (l staticLoader) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func newTestHandler(t *testing.T) (*WSHandler, *recordingAPI) {
	t.Helper()
	ctx := context.Background()

	storage := memory.NewStorage()
	raw, err := domain.EncodePrincipal(domain.User{ID: "user-1", Name: "Alice", Token: "tok"})
	if err != nil {
		t.Fatalf("encode principal: %v", err)
	}
	if err := storage.Set(ctx, app.PrincipalKey, raw); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	identity := app.NewIdentityStore(nil, storage)
	if err := identity.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	api := &recordingAPI{}
	quizzes := memory.NewQuizCache(staticLoader{"quiz-0001": sampleQuiz()}, time.Minute)
	service := app.NewQuizService(identity, api, quizzes, nil)
	return NewWSHandler(service), api
}

func TestWebSocketAttemptFlow(t *testing.T) {
	handler, api := newTestHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?code=quiz-0001"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first.
	_, payload := readNext(conn, t, "joined")
	questions, _ := payload["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", payload["questions"])
	}
	first, _ := questions[0].(map[string]any)
	if _, leaked := first["correctAnswer"]; leaked {
		t.Fatalf("answer key leaked to view: %v", first)
	}
	if payload["connectionId"] == "" {
		t.Fatalf("expected connection id")
	}
	if handler.Active() != 1 {
		t.Fatalf("expected one active attempt, got %d", handler.Active())
	}

	waitState(conn, t, "instructions")

	sendMsg(conn, t, "start", nil)
	waitState(conn, t, "in_progress")

	sendMsg(conn, t, "answer", map[string]any{"questionId": "q1", "value": "4"})
	state := waitState(conn, t, "in_progress")
	for state["answered"] != float64(1) {
		state = waitState(conn, t, "in_progress")
	}

	sendMsg(conn, t, "requestSubmit", nil)
	waitState(conn, t, "confirming_submit")
	sendMsg(conn, t, "confirmSubmit", nil)
	waitState(conn, t, "submitted")

	subs := api.Submissions()
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	if subs[0].UserID != "user-1" || subs[0].MarkedOptions[0].SelectedOption == nil || *subs[0].MarkedOptions[0].SelectedOption != "4" {
		t.Fatalf("unexpected submission %+v", subs[0])
	}
	if subs[0].MarkedOptions[1].SelectedOption != nil {
		t.Fatalf("unanswered question must submit null")
	}
}

func TestWebSocketRejectsUnknownCode(t *testing.T) {
	handler, _ := newTestHandler(t)
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/?code=unknown-code", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if payload["message"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestWebSocketRequiresCode(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEnqueueStopsWhenWriterIsGone(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !enqueue(send, writerDone, outboundMessage[any]{Type: "error"}) {
		t.Fatalf("expected first message to be queued")
	}

	close(writerDone)
	result := make(chan bool, 1)
	go func() { result <- enqueue(send, writerDone, outboundMessage[any]{Type: "error"}) }()

	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected enqueue to fail after the writer stopped")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue after the writer stopped")
	}
}

func sendMsg(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// waitState reads until a state message with the given state arrives.
func waitState(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "error" {
			t.Fatalf("unexpected error message: %v", payload)
		}
		if typ == "state" && payload["state"] == want {
			return payload
		}
	}
	t.Fatalf("state %s never arrived", want)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleQuiz() domain.Quiz {
	now := time.Now()
	return domain.Quiz{
		ID:        "quiz-0001",
		Name:      "Arithmetic",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Duration:  10,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Type: domain.MultipleChoice, Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 1},
			{ID: "q2", Text: "Zero is even.", Type: domain.TrueFalse, Options: domain.TrueFalseOptions(), CorrectAnswer: "True"},
		},
	}
}
