package freshbooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsuresh/ttracker/internal/application/ports"
	trackererrors "github.com/jsuresh/ttracker/internal/domain/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	})
	return client, server
}

func TestListProjects(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/projects" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ProjectsResponse{
			Projects: []Project{
				{ID: "11", Name: "Internal"},
				{ID: "12", Name: "Client Work"},
			},
		})
	})

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].ID != "11" || projects[0].Name != "Internal" {
		t.Errorf("unexpected first project: %+v", projects[0])
	}
}

func TestListTasks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/11/tasks" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(TasksResponse{
			Tasks: []Task{{ID: "7", Name: "code_review"}},
		})
	})

	tasks, err := client.ListTasks(context.Background(), "11")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "7" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestCreateTask(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ProjectID != "11" || req.Name != "code_review" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateTaskResponse{TaskID: "7"})
	})

	id, err := client.CreateTask(context.Background(), "11", "code_review")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if id != "7" {
		t.Errorf("task id = %q, want 7", id)
	}
}

func TestCreateTimeEntry(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload TimeEntryPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Date != "2026-08-27" {
			t.Errorf("date = %q, want 2026-08-27", payload.Date)
		}
		if payload.Hours != 1.5 {
			t.Errorf("hours = %v, want 1.5", payload.Hours)
		}
		json.NewEncoder(w).Encode(CreateTimeEntryResponse{TimeEntryID: "901"})
	})

	id, err := client.CreateTimeEntry(context.Background(), ports.TimeEntryRequest{
		ProjectID: "11",
		TaskID:    "7",
		Hours:     1.5,
		Notes:     "review backlog",
		Date:      time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTimeEntry() error = %v", err)
	}
	if id != "901" {
		t.Errorf("entry id = %q, want 901", id)
	}
}

func TestUpdateTimeEntry(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/time_entries/901" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateTimeEntry(context.Background(), "901", ports.TimeEntryRequest{
		ProjectID: "11",
		TaskID:    "7",
		Hours:     2,
		Date:      time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("UpdateTimeEntry() error = %v", err)
	}
}

func TestDeleteTimeEntryTreatsMissingAsDeleted(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if err := client.DeleteTimeEntry(context.Background(), "901"); err != nil {
		t.Fatalf("DeleteTimeEntry() on missing entry: %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteTask(context.Background(), "7"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if gotPath != "/tasks/7" {
		t.Errorf("path = %q, want /tasks/7", gotPath)
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ProjectsResponse{Projects: []Project{{ID: "1", Name: "p"}}})
	})

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(projects) != 1 {
		t.Errorf("got %d projects, want 1", len(projects))
	}
}

func TestRetryExhaustion(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ListProjects(context.Background())
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	// MaxRetries=2 means three attempts total.
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	var te *trackererrors.TrackerError
	if !trackererrors.As(err, &te) || te.Code != trackererrors.CodeRemote {
		t.Errorf("expected CodeRemote error, got %v", err)
	}
}

func TestAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListProjects(context.Background())
	if !trackererrors.Is(err, trackererrors.ErrRemoteAuth) {
		t.Fatalf("expected ErrRemoteAuth, got %v", err)
	}
}

func TestErrorResponseBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: ErrorDetail{Type: "validation", Message: "hours must be positive"},
		})
	})

	_, err := client.CreateTimeEntry(context.Background(), ports.TimeEntryRequest{
		Date: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "validation: hours must be positive"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error = %q, want substring %q", got, want)
	}
}
