// Package freshbooks provides an adapter for a Freshbooks-style billing API.
package freshbooks

import "time"

// Config holds the client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Project is a project record returned by the billing service.
type Project struct {
	ID   string `json:"project_id"`
	Name string `json:"name"`
}

// Task is a task record returned by the billing service.
type Task struct {
	ID   string `json:"task_id"`
	Name string `json:"name"`
}

// ProjectsResponse is the response body for the project list endpoint.
type ProjectsResponse struct {
	Projects []Project `json:"projects"`
}

// TasksResponse is the response body for the task list endpoint.
type TasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// CreateTaskRequest is the request body for task creation.
type CreateTaskRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// CreateTaskResponse is the response body for task creation.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
}

// TimeEntryPayload is the wire form of a time entry submission.
type TimeEntryPayload struct {
	ProjectID string  `json:"project_id"`
	TaskID    string  `json:"task_id"`
	Hours     float64 `json:"hours"`
	Notes     string  `json:"notes,omitempty"`
	Date      string  `json:"date"` // YYYY-MM-DD
}

// CreateTimeEntryResponse is the response body for time entry creation.
type CreateTimeEntryResponse struct {
	TimeEntryID string `json:"time_entry_id"`
}

// ErrorDetail describes a single error returned by the billing service.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the error body returned by the billing service.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
