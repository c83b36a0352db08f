package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sekolahdrive/drive-int/internal/config"
	drivehttp "github.com/sekolahdrive/drive-int/internal/http"
	"github.com/sekolahdrive/drive-int/internal/logging"
	"github.com/sekolahdrive/drive-int/internal/models"
)

// TokenSource supplies the bearer token for outgoing requests. It is
// read on every request and only ever written by the session store
// (login/logout/restore), so no synchronization is required here.
type TokenSource func() string

// retryLogger implements the retryablehttp.LeveledLogger interface,
// forwarding only warnings and errors to the structured logger.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Msgf("%s %v", msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Msgf("%s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// Client is the typed Drive API client.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	token      TokenSource
	logger     *logging.Logger
}

// NewClient creates a new API client. The token source may return the
// empty string, in which case requests go out unauthenticated (the
// backend serves public folders that way).
func NewClient(cfg *config.Config, token TokenSource) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	if token == nil {
		token = func() string { return "" }
	}

	logger := logging.NewLogger("api")

	// The retryablehttp wrapper owns transport-level concerns; retries
	// default to 0 because retry in this client is a user action.
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = drivehttp.NewAPIClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = &retryLogger{log: logger}
	// Hand back the final response even when retries are exhausted so
	// status-code handling (and the server's error message) still runs.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient: retryClient.StandardClient(),
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		token:      token,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request with JSON encoding and bearer auth.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	url := c.baseURL + path
	req, err := nethttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// AuthResponse is the payload returned by login.
type AuthResponse struct {
	Token string          `json:"token"`
	User  models.Identity `json:"user"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	resp, err := c.doRequest(ctx, "POST", "/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, newError(resp)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if auth.Token == "" {
		return nil, fmt.Errorf("auth response contained no token")
	}

	return &auth, nil
}

// Register creates a new account. Role may be empty; the backend
// defaults it.
func (c *Client) Register(ctx context.Context, name, email, password, role string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}

	resp, err := c.doRequest(ctx, "POST", "/auth/register", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusCreated && resp.StatusCode != nethttp.StatusOK {
		return newError(resp)
	}

	return nil
}

// FolderContents is the payload of GET /folders/{id}: the folder's own
// record plus its immediate children.
type FolderContents struct {
	Folder     models.Folder   `json:"folder"`
	Subfolders []models.Folder `json:"subfolders"`
	Files      []models.File   `json:"files"`
}

// GetFolder retrieves the contents of a folder. Pass
// models.RootFolderID for the virtual root.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*FolderContents, error) {
	path := fmt.Sprintf("/folders/%s", folderID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, newError(resp)
	}

	var contents FolderContents
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return nil, fmt.Errorf("failed to decode folder contents: %w", err)
	}

	return &contents, nil
}

// CreateFolder creates a folder under parentID and returns the new
// folder's ID. The entry only becomes visible through a subsequent
// GetFolder; there is no optimistic insert anywhere in this client.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string, isPublic bool) (string, error) {
	body := map[string]interface{}{
		"name":      name,
		"parent_id": parentID,
		"is_public": isPublic,
	}

	resp, err := c.doRequest(ctx, "POST", "/folders", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusCreated && resp.StatusCode != nethttp.StatusOK {
		return "", newError(resp)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode create folder response: %w", err)
	}

	return result.ID, nil
}

// UploadTarget is the payload of POST /files/upload: where to PUT the
// bytes, and the ID the file will have once they arrive.
type UploadTarget struct {
	FileID       string `json:"file_id"`
	PresignedURL string `json:"presigned_url"`
	StorageKey   string `json:"storage_key"`
}

// InitUpload requests a presigned upload target for a new file.
func (c *Client) InitUpload(ctx context.Context, name, folderID string, size int64, mimeType string) (*UploadTarget, error) {
	if mimeType == "" {
		mimeType = models.DefaultMimeType
	}

	body := map[string]interface{}{
		"name":      name,
		"folder_id": folderID,
		"size":      size,
		"mime_type": mimeType,
	}

	resp, err := c.doRequest(ctx, "POST", "/files/upload", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusCreated && resp.StatusCode != nethttp.StatusOK {
		return nil, newError(resp)
	}

	var target UploadTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("failed to decode upload target: %w", err)
	}
	if target.PresignedURL == "" {
		return nil, fmt.Errorf("upload target contained no presigned URL")
	}

	return &target, nil
}

// GetDownloadURL requests a short-lived download URL for a file.
func (c *Client) GetDownloadURL(ctx context.Context, fileID string) (string, error) {
	path := fmt.Sprintf("/files/%s/download", fileID)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return "", newError(resp)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode download response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("download response contained no URL")
	}

	return result.URL, nil
}
