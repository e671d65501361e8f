package examclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func jsonError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"data":null,"error":{"code":"` + code + `","message":"x"}}`)) //nolint:errcheck
}

func TestClientStartExam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/exams/EXAM-1/start" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"token":"tok-1","session":"sess-1"},"error":null}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	res, err := client.StartExam(context.Background(), "EXAM-1", "Budi", "rahasia")
	if err != nil {
		t.Fatalf("StartExam failed: %v", err)
	}
	if res.Token != "tok-1" || res.SessionSerial != "sess-1" {
		t.Fatalf("result = %+v", res)
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"pending authorization", http.StatusNotFound, "SESSION_NOT_FOUND", ErrNotFound},
		{"already submitted", http.StatusBadRequest, "ALREADY_SUBMITTED", ErrAlreadySubmitted},
		{"participant unknown", http.StatusNotFound, "PARTICIPANT_NOT_FOUND", ErrNotFound},
		{"bad token", http.StatusUnauthorized, "TOKEN_INVALID", ErrUnauthorized},
		{"server down", http.StatusInternalServerError, "INTERNAL_ERROR", ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jsonError(w, tt.status, tt.code)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			err := client.CheckAuthorization(context.Background(), "EXAM-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientGetQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{
			"questions_id_list":[{"id":3},{"id":1},{"id":2}],
			"start_time":"2026-03-10T08:00:00Z",
			"duration":45
		},"error":null}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	client.SetToken("tok-1")

	set, err := client.GetQuestions(context.Background(), "EXAM-1")
	if err != nil {
		t.Fatalf("GetQuestions failed: %v", err)
	}
	if len(set.QuestionIDs) != 3 || set.QuestionIDs[0] != 3 {
		t.Fatalf("ids = %v", set.QuestionIDs)
	}
	if set.DurationMinutes != 45 {
		t.Fatalf("duration = %d, want 45", set.DurationMinutes)
	}
	want := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if !set.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", set.StartTime, want)
	}
}

func TestClientSetTokenConcurrentWithRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"exam":{"serial":"EXAM-1"}},"error":null}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	// The controller installs the token while the countdown goroutine may be
	// mid-request; run both sides to let the race detector check the guard.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			client.SetToken(fmt.Sprintf("tok-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := client.GetExam(context.Background(), "EXAM-1"); err != nil {
				t.Errorf("GetExam failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestClientGetQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/exam-session/EXAM-1/questions/7" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{
			"question":{"id":7,"data":{"text":"2+2?"},"order_num":1},
			"options":[{"id":70,"description":"3"},{"id":71,"description":"4"}],
			"answer":71
		},"error":null}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	q, err := client.GetQuestion(context.Background(), "EXAM-1", 7)
	if err != nil {
		t.Fatalf("GetQuestion failed: %v", err)
	}
	if q.ID != 7 || len(q.Options) != 2 || q.AnswerID != 71 {
		t.Fatalf("question = %+v", q)
	}
}
