package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// NotAvailable is the backend's marker for a score that has not been computed yet.
const NotAvailable = "Not available"

// ScoreValue is a percentage score that may not be available yet.
type ScoreValue struct {
	Percent   float64
	Available bool
}

func (s ScoreValue) String() string {
	if !s.Available {
		return "Pending"
	}
	return strconv.FormatFloat(s.Percent, 'f', -1, 64) + "%"
}

// UnmarshalJSON accepts a number, a numeric string, null or the NotAvailable marker.
func (s *ScoreValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ScoreValue{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == NotAvailable || raw == "" {
			*s = ScoreValue{}
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", raw, err)
		}
		*s = ScoreValue{Percent: v, Available: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScoreValue{Percent: v, Available: true}
	return nil
}

// MarshalJSON writes the NotAvailable marker for pending scores.
func (s ScoreValue) MarshalJSON() ([]byte, error) {
	if !s.Available {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(s.Percent)
}

// HistoryEntry is one attempt in a participant's history.
type HistoryEntry struct {
	QuizID    string     `json:"quizId"`
	QuizName  string     `json:"quizName"`
	Score     ScoreValue `json:"score"`
	TimeTaken int        `json:"timeTaken"`
	Date      time.Time  `json:"date"`
}

// ResultDetail is one graded question of a published result.
type ResultDetail struct {
	QuestionID         string   `json:"_id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswer      string   `json:"correctAnswer"`
	UserSelectedOption *string  `json:"userSelectedOption"`
	Points             int      `json:"marks"`
}

// Correct reports an exact match between the selected and the correct answer.
func (d ResultDetail) Correct() bool {
	return d.UserSelectedOption != nil && *d.UserSelectedOption == d.CorrectAnswer
}

// LeaderboardEntry is one participant's standing on a quiz.
type LeaderboardEntry struct {
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	TimeTaken int     `json:"timeTaken"`
}

// UnmarshalJSON flattens the populated {userId:{_id,name}} form as well as a plain id.
func (e *LeaderboardEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID    json.RawMessage `json:"userId"`
		Name      string          `json:"name"`
		Score     float64         `json:"score"`
		TimeTaken int             `json:"timeTaken"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = LeaderboardEntry{Name: raw.Name, Score: raw.Score, TimeTaken: raw.TimeTaken}
	if len(raw.UserID) == 0 || bytes.Equal(raw.UserID, []byte("null")) {
		return nil
	}
	if raw.UserID[0] == '"' {
		return json.Unmarshal(raw.UserID, &e.UserID)
	}
	var populated struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw.UserID, &populated); err != nil {
		return err
	}
	e.UserID = populated.ID
	if e.Name == "" {
		e.Name = populated.Name
	}
	return nil
}

// Attempt is one row of the admin's per-quiz participant list.
type Attempt struct {
	UserID    string     `json:"_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Score     ScoreValue `json:"score"`
	TimeTaken int        `json:"timeTaken"`
}

// LoginReply is the role-specific login response body.
type LoginReply struct {
	Message    string     `json:"message"`
	AdminID    string     `json:"adminId"`
	AdminName  string     `json:"adminName"`
	AdminEmail string     `json:"adminEmail"`
	QuizIDs    []string   `json:"quizIds"`
	UserInfo   *LoginUser `json:"userInfo"`
	Token      string     `json:"token"`
}

// LoginUser is the nested user record of a user login reply.
type LoginUser struct {
	ID               string   `json:"_id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	AttemptedQuizzes []string `json:"attemptedQuizes"`
}

// RegisterReply carries the backend's error string; empty means success.
type RegisterReply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
