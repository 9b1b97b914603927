package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// Client is a Go SDK for the scheme-connect API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new scheme-connect client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		userAgent: "scheme-connect-go",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when the server answers with an error envelope
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is an API 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// SchemeList is a page of schemes
type SchemeList struct {
	Schemes []models.Scheme `json:"schemes"`
	Total   int             `json:"total"`
}

// ListOptions filters the scheme listing
type ListOptions struct {
	Query    string
	Category string
}

// Workflow is a session's onboarding progress
type Workflow struct {
	Steps   []models.WorkflowStep `json:"steps"`
	Current models.StepID         `json:"current,omitempty"`
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListCategories returns the category filter values
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var result struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// Stats returns catalog statistics
func (c *Client) Stats(ctx context.Context) (*models.CatalogStats, error) {
	var stats models.CatalogStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListSchemes searches the catalog
func (c *Client) ListSchemes(ctx context.Context, opts ListOptions) (*SchemeList, error) {
	params := url.Values{}
	if opts.Query != "" {
		params.Set("q", opts.Query)
	}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}

	path := "/api/v1/schemes"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var list SchemeList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// FeaturedSchemes returns the featured schemes
func (c *Client) FeaturedSchemes(ctx context.Context) (*SchemeList, error) {
	var list SchemeList
	if err := c.do(ctx, http.MethodGet, "/api/v1/schemes/featured", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetScheme retrieves a scheme by ID
func (c *Client) GetScheme(ctx context.Context, id string) (*models.Scheme, error) {
	var scheme models.Scheme
	if err := c.do(ctx, http.MethodGet, "/api/v1/schemes/"+url.PathEscape(id), nil, &scheme); err != nil {
		return nil, err
	}
	return &scheme, nil
}

// CreateScheme adds a scheme to the ingested catalog
func (c *Client) CreateScheme(ctx context.Context, scheme models.Scheme) (*models.Scheme, error) {
	var created models.Scheme
	if err := c.do(ctx, http.MethodPost, "/api/v1/schemes", scheme, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateScheme replaces an ingested scheme
func (c *Client) UpdateScheme(ctx context.Context, scheme models.Scheme) (*models.Scheme, error) {
	var updated models.Scheme
	if err := c.do(ctx, http.MethodPut, "/api/v1/schemes/"+url.PathEscape(scheme.ID), scheme, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteScheme removes an ingested scheme
func (c *Client) DeleteScheme(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/schemes/"+url.PathEscape(id), nil, nil)
}

// ImportSchemes uploads a spreadsheet, replacing the ingested catalog
func (c *Client) ImportSchemes(ctx context.Context, filename string, file io.Reader) (*models.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/schemes/import", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var result models.ImportResult
	if err := decodeEnvelope(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Respond asks the advisor for a reply without a session
func (c *Client) Respond(ctx context.Context, req models.RespondRequest) (*models.RespondResponse, error) {
	var reply models.RespondResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/respond", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CreateSession starts an advisor session
func (c *Client) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	var created models.CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetSession retrieves a session by ID
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession ends a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// UpdateProfile merges a partial profile into the session
func (c *Client) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.UserProfile, error) {
	var result struct {
		Profile models.UserProfile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPatch, sessionPath(id, "/profile"), update, &result); err != nil {
		return nil, err
	}
	return &result.Profile, nil
}

// Recommendations returns up to limit schemes for the session profile.
// A non-positive limit uses the server default.
func (c *Client) Recommendations(ctx context.Context, id string, limit int) (*SchemeList, error) {
	path := sessionPath(id, "/recommendations")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var list SchemeList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Eligibility checks the session profile against the catalog
func (c *Client) Eligibility(ctx context.Context, id string) (*models.EligibilityResponse, error) {
	var result models.EligibilityResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "/eligibility"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Workflow returns the session's workflow steps
func (c *Client) Workflow(ctx context.Context, id string) (*Workflow, error) {
	var wf Workflow
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "/workflow"), nil, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// CompleteStep marks a workflow step completed
func (c *Client) CompleteStep(ctx context.Context, id string, step models.StepID) ([]models.WorkflowStep, error) {
	var result struct {
		Steps []models.WorkflowStep `json:"steps"`
	}
	path := sessionPath(id, "/workflow/"+url.PathEscape(string(step))+"/complete")
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Steps, nil
}

// Messages returns the session's chat log
func (c *Client) Messages(ctx context.Context, id string) ([]models.ChatMessage, error) {
	var result struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "/messages"), nil, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// SendMessage posts a user message. The bot reply arrives asynchronously;
// poll Messages or use the chat websocket to receive it.
func (c *Client) SendMessage(ctx context.Context, id, content string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	req := models.SendMessageRequest{Content: content}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/messages"), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func sessionPath(id, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// do sends body as JSON and decodes the envelope data into out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, "application/json", reader)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

func decodeEnvelope(data []byte, out interface{}) error {
	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return result.Error
		}
		return &APIError{Code: "unknown", Message: "request failed"}
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request. Error envelopes are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Code = "http_error"
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	return respBody, nil
}
