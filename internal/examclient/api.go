package examclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// API error classes. Callers branch on these, never on status codes.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrUnauthorized     = errors.New("token rejected")
	ErrServer           = errors.New("server error")
)

// SessionAPI is the server surface the session runtime drives. The HTTP
// client implements it; tests use fakes.
type SessionAPI interface {
	GetExam(ctx context.Context, examSerial string) (*ExamInfo, error)
	StartExam(ctx context.Context, examSerial, name, password string) (*StartResult, error)
	CheckAuthorization(ctx context.Context, examSerial string) error
	GetQuestions(ctx context.Context, examSerial string) (*QuestionSet, error)
	GetQuestion(ctx context.Context, examSerial string, questionID int64) (*QuestionDetail, error)
	SaveAnswer(ctx context.Context, examSerial string, questionID, optionID int64) error
	Submit(ctx context.Context, examSerial string) error
}

// ExamInfo is the public exam lookup result.
type ExamInfo struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
}

// StartResult is what admission returns: the per-attempt token and the
// session serial the proctor scans.
type StartResult struct {
	Token         string `json:"token"`
	SessionSerial string `json:"session"`
}

// QuestionSet is the authoritative id set plus the timing baseline.
type QuestionSet struct {
	QuestionIDs     []int64
	StartTime       time.Time
	DurationMinutes int
}

// Option is one selectable answer as served to participants.
type Option struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// QuestionDetail is one question with options and the saved answer (0 if
// none).
type QuestionDetail struct {
	ID       int64           `json:"id"`
	Data     json.RawMessage `json:"data"`
	Options  []Option        `json:"options"`
	AnswerID int64           `json:"answer"`
}

// Client is the HTTP implementation of SessionAPI against the exam backend.
// The token is mutex-guarded: the controller may install it from one
// goroutine while the countdown goroutine is issuing a submit.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a Client. baseURL has no trailing slash.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// SetToken installs the exam token used on session endpoints.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// envelope mirrors the server response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetExam fetches public exam info for the admission page.
func (c *Client) GetExam(ctx context.Context, examSerial string) (*ExamInfo, error) {
	var out struct {
		Exam ExamInfo `json:"exam"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/exams/"+examSerial, nil, &out); err != nil {
		return nil, err
	}
	return &out.Exam, nil
}

// StartExam performs admission and returns the attempt credentials.
func (c *Client) StartExam(ctx context.Context, examSerial, name, password string) (*StartResult, error) {
	body := map[string]string{"name": name}
	if password != "" {
		body["password"] = password
	}
	res := &StartResult{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/exams/"+examSerial+"/start", body, res); err != nil {
		return nil, err
	}
	return res, nil
}

// CheckAuthorization asks whether a proctor has authorized this attempt's
// session yet. nil means yes.
func (c *Client) CheckAuthorization(ctx context.Context, examSerial string) error {
	return c.do(ctx, http.MethodGet, "/api/v1/exam-session/"+examSerial+"/check", nil, nil)
}

// GetQuestions fetches the question id set and the countdown baseline.
func (c *Client) GetQuestions(ctx context.Context, examSerial string) (*QuestionSet, error) {
	var out struct {
		QuestionsIDList []struct {
			ID int64 `json:"id"`
		} `json:"questions_id_list"`
		StartTime time.Time `json:"start_time"`
		Duration  int       `json:"duration"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/exam-session/"+examSerial+"/questions", nil, &out); err != nil {
		return nil, err
	}

	set := &QuestionSet{
		StartTime:       out.StartTime,
		DurationMinutes: out.Duration,
	}
	for _, ref := range out.QuestionsIDList {
		set.QuestionIDs = append(set.QuestionIDs, ref.ID)
	}
	return set, nil
}

// GetQuestion fetches one question with options and the saved answer.
func (c *Client) GetQuestion(ctx context.Context, examSerial string, questionID int64) (*QuestionDetail, error) {
	var out struct {
		Question struct {
			ID   int64           `json:"id"`
			Data json.RawMessage `json:"data"`
		} `json:"question"`
		Options  []Option `json:"options"`
		AnswerID int64    `json:"answer"`
	}
	path := fmt.Sprintf("/api/v1/exam-session/%s/questions/%d", examSerial, questionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &QuestionDetail{
		ID:       out.Question.ID,
		Data:     out.Question.Data,
		Options:  out.Options,
		AnswerID: out.AnswerID,
	}, nil
}

// SaveAnswer saves (or overwrites) the answer for one question.
func (c *Client) SaveAnswer(ctx context.Context, examSerial string, questionID, optionID int64) error {
	path := fmt.Sprintf("/api/v1/exam-session/%s/questions/%d", examSerial, questionID)
	return c.do(ctx, http.MethodPost, path, map[string]int64{"mcq_option_id": optionID}, nil)
}

// Submit finishes the attempt.
func (c *Client) Submit(ctx context.Context, examSerial string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/exam-session/"+examSerial+"/submit", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return classifyError(resp.StatusCode, &env)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// classifyError folds the server's error codes into the client's error
// classes.
func classifyError(status int, env *envelope) error {
	code := ""
	if env.Error != nil {
		code = env.Error.Code
	}

	switch code {
	case "ALREADY_SUBMITTED":
		return ErrAlreadySubmitted
	case "EXAM_NOT_FOUND", "PARTICIPANT_NOT_FOUND", "SESSION_NOT_FOUND",
		"QUESTION_NOT_FOUND", "OPTION_NOT_FOUND":
		return ErrNotFound
	case "TOKEN_REQUIRED", "TOKEN_INVALID", "TOKEN_EXPIRED":
		return ErrUnauthorized
	}

	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrServer, status)
	default:
		return fmt.Errorf("%w: %s (status %d)", ErrServer, code, status)
	}
}
