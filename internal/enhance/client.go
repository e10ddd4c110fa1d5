// Package enhance provides the client for the kie.ai task API used to run
// Nano Banana image edits, plus the request/result types shared by every
// deployment entry point.
//
// An enhancement is a two-step process:
//  1. Submit a task (POST /createTask) and receive a task ID
//  2. Poll the task (GET /recordInfo) at a fixed interval until it succeeds,
//     fails, or the attempt budget is exhausted
//
// The poll interval is flat (no backoff). A status response that is not
// successful ends the enhancement immediately; only the waiting state is retried.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fpang/banana-enhance/internal/metrics"
)

const (
	// DefaultBaseURL is the kie.ai jobs API base URL.
	DefaultBaseURL = "https://api.kie.ai/api/v1/jobs"

	// Model is the upstream model identifier sent with every task.
	Model = "google/nano-banana-edit"

	// DefaultSubmitTimeout bounds the createTask call.
	DefaultSubmitTimeout = 30 * time.Second

	// DefaultPollTimeout bounds each recordInfo call.
	DefaultPollTimeout = 10 * time.Second

	// Poll loop settings: 30 attempts x 5s is roughly 2.5 minutes.
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 30

	// successCode is the application-level success sentinel in response bodies.
	successCode = 200

	// maxResponseSize caps how much of an upstream body is read.
	maxResponseSize = 1 << 20 // 1 MB

	metricsNamespace = "BananaEnhance"
)

// Client submits enhancement tasks and polls them to completion.
// A Client is safe for concurrent use; each Enhance call is independent.
type Client struct {
	httpClient    *http.Client
	apiKey        string
	baseURL       string
	submitTimeout time.Duration
	pollTimeout   time.Duration
	pollInterval  time.Duration
	maxAttempts   int

	// sleep waits between status checks. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different upstream (e.g. a staging host).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithPollInterval overrides the delay before each status check.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxAttempts overrides the number of status checks before giving up.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithTimeouts overrides the submission and per-poll call timeouts.
func WithTimeouts(submit, poll time.Duration) Option {
	return func(c *Client) {
		c.submitTimeout = submit
		c.pollTimeout = poll
	}
}

// NewClient creates a kie.ai client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{},
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		submitTimeout: DefaultSubmitTimeout,
		pollTimeout:   DefaultPollTimeout,
		pollInterval:  DefaultPollInterval,
		maxAttempts:   DefaultMaxAttempts,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	return c
}

// Enhance submits req and waits for the resulting task to finish.
func (c *Client) Enhance(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	taskID, err := c.Submit(ctx, req)
	if err != nil {
		c.recordOutcome(start, nil, err)
		return nil, err
	}

	result, err := c.AwaitCompletion(ctx, taskID)
	c.recordOutcome(start, result, err)
	return result, err
}

// --- Submission ---

// Submit creates an upstream task for req and returns its task ID.
// The request must already be normalized (see Request.Normalize).
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	payload := createTaskRequest{
		Model: Model,
		Input: taskInput{
			Prompt:       req.Prompt,
			ImageURLs:    req.ImageURLs,
			OutputFormat: req.OutputFormat,
			ImageSize:    req.ImageSize,
		},
	}
	log.Info().
		Str("model", Model).
		Int("imageCount", len(req.ImageURLs)).
		Str("outputFormat", req.OutputFormat).
		Str("imageSize", req.ImageSize).
		Msg("Creating enhancement task")

	body, err := json.Marshal(payload)
	if err != nil {
		return "", newError(ErrTypeSubmission, "", "Failed to create task", fmt.Errorf("marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	status, respBody, err := c.do(ctx, http.MethodPost, c.baseURL+"/createTask", bytes.NewReader(body))
	if err != nil {
		return "", newError(ErrTypeSubmission, "", "Failed to create task", err)
	}
	if status < 200 || status > 299 {
		return "", newError(ErrTypeSubmission, "", fmt.Sprintf("Failed to create task: %d %s", status, truncate(string(respBody), 500)), nil)
	}

	var created createTaskResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", newError(ErrTypeSubmission, "", "Failed to create task: "+truncate(string(respBody), 500), fmt.Errorf("parse response: %w", err))
	}
	if created.Code != successCode || created.Data == nil || created.Data.TaskID == "" {
		return "", newError(ErrTypeSubmission, "", "Failed to create task: "+truncate(string(respBody), 500), nil)
	}

	log.Info().Str("taskId", created.Data.TaskID).Msg("Enhancement task created")
	return created.Data.TaskID, nil
}

// --- Status polling ---

// AwaitCompletion polls the task until it succeeds or fails. It sleeps the
// poll interval before every check and gives up after the attempt budget.
func (c *Client) AwaitCompletion(ctx context.Context, taskID string) (*Result, error) {
	logger := log.With().Str("taskId", taskID).Logger()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		logger.Debug().Int("attempt", attempt).Int("maxAttempts", c.maxAttempts).Msg("Checking task status")

		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, newError(ErrTypeUnknown, taskID, "Polling interrupted", err)
		}

		data, err := c.checkStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch data.State {
		case StateSuccess:
			urls, err := parseResultURLs(data.ResultJSON)
			if err != nil {
				return nil, newError(ErrTypePoll, taskID, "Failed to read task result", err)
			}
			if len(urls) == 0 {
				return nil, newError(ErrTypeEmptyResult, taskID, "No result URLs found in successful task", nil)
			}
			logger.Info().Str("imageUrl", urls[0]).Int("attempts", attempt).Msg("Task completed successfully")
			return &Result{
				ImageURL: urls[0],
				TaskID:   taskID,
				Message:  SuccessMessage,
				Attempts: attempt,
			}, nil

		case StateFail:
			msg := data.FailMsg
			if msg == "" {
				msg = "Unknown error"
			}
			if code := failCode(data.FailCode); code != "" {
				msg = fmt.Sprintf("%s (%s)", msg, code)
			}
			logger.Warn().Str("failMsg", msg).Int("attempts", attempt).Msg("Task failed upstream")
			return nil, newError(ErrTypeTaskFailed, taskID, "Task failed: "+msg, nil)

		default:
			logger.Debug().Str("state", data.State).Int("attempt", attempt).Msg("Task still running")
		}
	}

	return nil, newError(ErrTypeTimeout, taskID, fmt.Sprintf("Task timed out after %d attempts", c.maxAttempts), nil)
}

// checkStatus performs one recordInfo call. Any non-success response is a
// terminal poll error.
func (c *Client) checkStatus(ctx context.Context, taskID string) (*taskRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	endpoint := c.baseURL + "/recordInfo?taskId=" + url.QueryEscape(taskID)
	status, respBody, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newError(ErrTypePoll, taskID, "Failed to get task status", err)
	}
	if status < 200 || status > 299 {
		return nil, newError(ErrTypePoll, taskID, fmt.Sprintf("Failed to get task status: %d %s", status, truncate(string(respBody), 500)), nil)
	}

	var info recordInfoResponse
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, newError(ErrTypePoll, taskID, "Failed to get task status: "+truncate(string(respBody), 500), fmt.Errorf("parse response: %w", err))
	}
	if info.Code != successCode || info.Data == nil {
		return nil, newError(ErrTypePoll, taskID, "Failed to get task status: "+truncate(string(respBody), 500), nil)
	}
	return info.Data, nil
}

// parseResultURLs extracts resultUrls from the JSON-encoded resultJson field.
func parseResultURLs(resultJSON string) ([]string, error) {
	if strings.TrimSpace(resultJSON) == "" {
		return nil, nil
	}
	if !gjson.Valid(resultJSON) {
		return nil, fmt.Errorf("resultJson is not valid JSON (body: %s)", truncate(resultJSON, 200))
	}

	var urls []string
	for _, u := range gjson.Get(resultJSON, "resultUrls").Array() {
		if s := u.String(); s != "" {
			urls = append(urls, s)
		}
	}
	return urls, nil
}

// failCode renders the upstream failCode, which may be a string or a number.
func failCode(v any) string {
	switch code := v.(type) {
	case nil:
		return ""
	case string:
		return code
	case float64:
		return fmt.Sprintf("%.0f", code)
	default:
		return fmt.Sprint(code)
	}
}

// --- Internal helpers ---

// do sends an authenticated request and returns the status code and body.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (int, []byte, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("url", endpoint).Msg("kie.ai API request")
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("kie.ai API response")
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	log.Debug().
		Int("statusCode", resp.StatusCode).
		Dur("duration", duration).
		RawJSON("body", jsonOrQuoted(respBody)).
		Msg("kie.ai API response")
	return resp.StatusCode, respBody, nil
}

// recordOutcome emits one EMF record per enhancement.
func (c *Client) recordOutcome(start time.Time, result *Result, err error) {
	outcome := "success"
	if err != nil {
		outcome = TypeOf(err).String()
	}
	rec := metrics.New(metricsNamespace).
		Dimension("Outcome", outcome).
		Metric("EnhanceLatencyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Count("EnhanceResult")
	if result != nil {
		rec.Metric("PollAttempts", float64(result.Attempts), metrics.UnitCount)
	}
	rec.Flush()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jsonOrQuoted returns b if it is valid JSON, otherwise b as a JSON string,
// so it can be attached to a log event with RawJSON.
func jsonOrQuoted(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(truncate(string(b), 500))
	return quoted
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
