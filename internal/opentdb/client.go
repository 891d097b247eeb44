package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultURL    = "https://opentdb.com/api.php"
	defaultAmount = 10
)

// RawQuestion mirrors the OpenTriviaDB question payload. Text fields are HTML-entity encoded.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Decoded returns a copy with every text field HTML-unescaped.
func (q RawQuestion) Decoded() RawQuestion {
	out := q
	out.Category = html.UnescapeString(q.Category)
	out.Question = html.UnescapeString(q.Question)
	out.CorrectAnswer = html.UnescapeString(q.CorrectAnswer)
	out.IncorrectAnswers = make([]string, len(q.IncorrectAnswers))
	for i, a := range q.IncorrectAnswers {
		out.IncorrectAnswers[i] = html.UnescapeString(a)
	}
	return out
}

// Query selects questions. Empty Category, Difficulty and Type mean "any".
type Query struct {
	Amount     int
	Category   string
	Difficulty string
	Type       string
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	return NewClientWithURL(DefaultURL, httpClient)
}

func NewClientWithURL(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// FetchQuestions returns decoded questions matching q.
func (c *Client) FetchQuestions(ctx context.Context, q Query) ([]RawQuestion, error) {
	amount := q.Amount
	if amount <= 0 {
		amount = defaultAmount
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Difficulty != "" {
		params.Set("difficulty", q.Difficulty)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	// response_code 1 means "not enough questions for the query"; callers treat it as empty.
	switch payload.ResponseCode {
	case 0:
	case 1:
		return nil, nil
	default:
		return nil, fmt.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}

	out := make([]RawQuestion, 0, len(payload.Results))
	for _, item := range payload.Results {
		out = append(out, item.Decoded())
	}
	return out, nil
}
