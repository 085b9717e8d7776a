package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client talks to the worker's REST endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the worker at baseURL
// (e.g. http://127.0.0.1:5000).
func NewClient(baseURL string, logger *log.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status probes worker and device connectivity.
func (c *Client) Status() (StatusReport, error) {
	var report StatusReport
	if err := c.get("/api/status", &report); err != nil {
		return StatusReport{}, err
	}
	return report, nil
}

// ListPath lists a remote directory.
func (c *Client) ListPath(path string) ([]DirEntry, error) {
	var entries []DirEntry
	if err := c.post("/api/list_path", map[string]string{"path": path}, &entries); err != nil {
		return nil, err
	}
	c.logger.Printf("[API] ListPath: path=%s entries=%d", path, len(entries))
	return entries, nil
}

// PreviewFile asks the worker to materialize a remote file locally and
// returns the local filesystem path to open.
func (c *Client) PreviewFile(remotePath string) (string, error) {
	var result PreviewResult
	if err := c.post("/api/preview_file", map[string]string{"path": remotePath}, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", errors.Errorf("preview failed: %s", result.Error)
	}
	return result.LocalPath, nil
}

// Login authenticates a user id against the worker's account store.
func (c *Client) Login(userID string) (LoginResult, error) {
	var result LoginResult
	err := c.post("/api/login", map[string]string{"user_id": userID}, &result)
	if err != nil {
		return LoginResult{}, err
	}
	if !result.Success {
		return LoginResult{}, errors.Errorf("login rejected: %s", result.Message)
	}
	return result, nil
}

// CreateAccount provisions a new account with the given storage plan
// (free, basic or pro).
func (c *Client) CreateAccount(userID, plan string) error {
	var result ackResult
	payload := map[string]string{"user_id": userID, "plan": plan}
	if err := c.post("/api/create_account", payload, &result); err != nil {
		return err
	}
	if !result.Success {
		return errors.Errorf("account creation rejected: %s", result.Message)
	}
	c.logger.Printf("[API] CreateAccount: user=%s plan=%s", userID, plan)
	return nil
}

// AdminUsers lists all accounts with storage usage.
func (c *Client) AdminUsers() ([]AdminUser, error) {
	var users []AdminUser
	if err := c.get("/api/admin_users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdminDeleteUser removes an account and its cloud container.
func (c *Client) AdminDeleteUser(userID string) error {
	var result ackResult
	if err := c.post("/api/admin_delete_user", map[string]string{"user_id": userID}, &result); err != nil {
		return err
	}
	if !result.Success {
		return errors.Errorf("delete rejected: %s", result.Message)
	}
	return nil
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return errors.Wrapf(err, "GET %s failed", path)
	}
	return c.decode(path, resp, out)
}

func (c *Client) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s request", path)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "POST %s failed", path)
	}
	return c.decode(path, resp, out)
}

// decode reads the body for any status code: the worker sends its
// {success, message} diagnostics with 4xx statuses too.
func (c *Client) decode(path string, resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s response", path)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			if resp.StatusCode >= 400 {
				return errors.Errorf("%s returned %s", path, resp.Status)
			}
			return errors.Wrapf(err, "failed to decode %s response", path)
		}
	}
	if resp.StatusCode >= 500 {
		return errors.Errorf("%s returned %s", path, resp.Status)
	}
	return nil
}
