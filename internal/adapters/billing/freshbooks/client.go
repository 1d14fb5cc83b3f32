package freshbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/errors"
)

// Compile-time check that Client implements BillingClientPort.
var _ ports.BillingClientPort = (*Client)(nil)

// Client handles HTTP communication with the billing API.
type Client struct {
	httpClient *http.Client
	config     Config
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for the Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.config.MaxRetries = maxRetries
	}
}

// WithBaseURL sets the base URL for API requests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewClient creates a new billing API client with functional options.
func NewClient(config Config, opts ...ClientOption) *Client {
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	c := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListProjects returns all projects the user can log time against.
func (c *Client) ListProjects(ctx context.Context) ([]ports.RemoteProject, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result ProjectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to decode projects response", err)
	}

	projects := make([]ports.RemoteProject, 0, len(result.Projects))
	for _, p := range result.Projects {
		projects = append(projects, ports.RemoteProject{ID: p.ID, Name: p.Name})
	}
	return projects, nil
}

// ListTasks returns the tasks attached to a project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]ports.RemoteTask, error) {
	path := fmt.Sprintf("/projects/%s/tasks", projectID)
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result TasksResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to decode tasks response", err)
	}

	tasks := make([]ports.RemoteTask, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		tasks = append(tasks, ports.RemoteTask{ID: t.ID, Name: t.Name})
	}
	return tasks, nil
}

// CreateTask creates a task under a project and returns its remote id.
func (c *Client) CreateTask(ctx context.Context, projectID, name string) (string, error) {
	body, err := json.Marshal(CreateTaskRequest{ProjectID: projectID, Name: name})
	if err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to marshal task request", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/tasks", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.handleErrorResponse(resp)
	}

	var result CreateTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to decode task response", err)
	}

	return result.TaskID, nil
}

// CreateTimeEntry submits a new time entry and returns its remote id.
func (c *Client) CreateTimeEntry(ctx context.Context, req ports.TimeEntryRequest) (string, error) {
	body, err := json.Marshal(payloadFromRequest(req))
	if err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to marshal time entry", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/time_entries", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.handleErrorResponse(resp)
	}

	var result CreateTimeEntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewError(errors.CodeRemote, "failed to decode time entry response", err)
	}

	return result.TimeEntryID, nil
}

// UpdateTimeEntry amends an existing remote time entry.
func (c *Client) UpdateTimeEntry(ctx context.Context, remoteID string, req ports.TimeEntryRequest) error {
	body, err := json.Marshal(payloadFromRequest(req))
	if err != nil {
		return errors.NewError(errors.CodeRemote, "failed to marshal time entry", err)
	}

	path := fmt.Sprintf("/time_entries/%s", remoteID)
	resp, err := c.doRequestWithRetry(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.handleErrorResponse(resp)
	}

	return nil
}

// DeleteTimeEntry retracts a remote time entry.
func (c *Client) DeleteTimeEntry(ctx context.Context, remoteID string) error {
	path := fmt.Sprintf("/time_entries/%s", remoteID)
	return c.doDelete(ctx, path)
}

// DeleteTask retracts a remote task.
func (c *Client) DeleteTask(ctx context.Context, remoteID string) error {
	path := fmt.Sprintf("/tasks/%s", remoteID)
	return c.doDelete(ctx, path)
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	resp, err := c.doRequestWithRetry(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A 404 on delete means the record is already gone; retraction is
	// idempotent from the caller's point of view.
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.handleErrorResponse(resp)
	}

	return nil
}

// payloadFromRequest converts a port-level request into the wire format.
func payloadFromRequest(req ports.TimeEntryRequest) TimeEntryPayload {
	return TimeEntryPayload{
		ProjectID: req.ProjectID,
		TaskID:    req.TaskID,
		Hours:     req.Hours,
		Notes:     req.Notes,
		Date:      req.Date.Format("2006-01-02"),
	}
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var lastErr error
	delay := c.config.RetryBaseDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff with cap
			delay *= 2
			if c.config.RetryMaxDelay > 0 && delay > c.config.RetryMaxDelay {
				delay = c.config.RetryMaxDelay
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.NewError(errors.CodeRemote, "request failed", err)
			continue
		}

		// Check for retryable status codes (429 Too Many Requests, 5xx Server Errors)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Check for Retry-After header
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, errors.NewError(errors.CodeRemote,
		fmt.Sprintf("request failed after %d retries", c.config.MaxRetries+1), lastErr)
}

// newRequest creates a new HTTP request with required headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	url := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	return req, nil
}

// handleErrorResponse extracts error information from an error response.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewError(errors.CodeRemote,
			fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode), err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.NewError(errors.CodeRemote,
			fmt.Sprintf("HTTP %d: authentication failed", resp.StatusCode), errors.ErrRemoteAuth)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		// If we can't parse the error, return the raw body
		return errors.NewError(errors.CodeRemote,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	errType := errResp.Error.Type
	if errType == "" {
		errType = "error"
	}

	return errors.NewError(errors.CodeRemote,
		fmt.Sprintf("%s: %s", errType, errResp.Error.Message), nil)
}
