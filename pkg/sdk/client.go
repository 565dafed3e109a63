// Package sdk provides the client-side library for the Celerix Contacts HTTP API.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Options tunes a Client.
type Options struct {
	// Token is a session token sent as a bearer credential.
	Token string
	// InsecureTLS accepts the daemon's self-signed certificate.
	InsecureTLS bool
	// HTTPClient overrides the transport; its Jar is replaced when nil.
	HTTPClient *http.Client
}

// Client talks to a Celerix Contacts daemon. It implements ContactsAPI.
type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.RWMutex
	token string
}

var _ ContactsAPI = (*Client)(nil)

// New returns a client for the daemon at baseURL (for example
// "http://localhost:7003").
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
		if opts.InsecureTLS {
			hc.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // self-signed daemon cert
			}
		}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	return &Client{base: u, http: hc, token: opts.Token}, nil
}

// Token is the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status   int
	Message  string
	Fields   map[string]string
	Problems []string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: %s", e.Status, e.Message)
	for _, p := range e.Problems {
		b.WriteString("; " + p)
	}
	for k, v := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", k, v)
	}
	return b.String()
}

// Is maps HTTP statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrInvalid:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// --- contacts ---

func (c *Client) ListContacts(ctx context.Context, sortBy schema.SortField, page int) (schema.Page[schema.Contact], error) {
	q := url.Values{}
	if sortBy != "" {
		q.Set("sortBy", string(sortBy))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out schema.Page[schema.Contact]
	err := c.do(ctx, http.MethodGet, "/api/contacts", q, nil, &out)
	return out, err
}

func (c *Client) SearchContacts(ctx context.Context, term string, page int) (schema.Page[schema.Contact], error) {
	q := url.Values{"searchUserInput": {term}}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out schema.Page[schema.Contact]
	err := c.do(ctx, http.MethodGet, "/api/contacts/search", q, nil, &out)
	return out, err
}

func (c *Client) GetContact(ctx context.Context, id int64) (schema.Contact, error) {
	var out schema.Contact
	err := c.do(ctx, http.MethodGet, contactPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateContact(ctx context.Context, ct schema.Contact) (schema.Contact, error) {
	var out schema.Contact
	err := c.do(ctx, http.MethodPost, "/api/contacts", nil, ct, &out)
	return out, err
}

func (c *Client) UpdateContact(ctx context.Context, ct schema.Contact) (schema.Contact, error) {
	var out schema.Contact
	err := c.do(ctx, http.MethodPut, contactPath(ct.ID), nil, ct, &out)
	return out, err
}

func (c *Client) DeleteContact(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, contactPath(id), nil, nil, nil)
}

func (c *Client) ResetSandbox(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/contacts/reset", nil, nil, nil)
}

// --- account ---

type credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// Register creates an account and keeps the returned session.
func (c *Client) Register(ctx context.Context, email, password string) (schema.Session, error) {
	var out schema.Session
	if err := c.do(ctx, http.MethodPost, "/api/account/register", nil, credentials{Email: email, Password: password}, &out); err != nil {
		return schema.Session{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Login signs in and keeps the returned session.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (schema.Session, error) {
	var out schema.Session
	in := credentials{Email: email, Password: password, RememberMe: remember}
	if err := c.do(ctx, http.MethodPost, "/api/account/login", nil, in, &out); err != nil {
		return schema.Session{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Logout revokes the current session and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/account/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) WhoAmI(ctx context.Context) (schema.Identity, error) {
	var out schema.Identity
	err := c.do(ctx, http.MethodGet, "/api/account/me", nil, nil, &out)
	return out, err
}

// --- transport ---

func contactPath(id int64) string {
	return "/api/contacts/" + strconv.FormatInt(id, 10)
}

const maxAttempts = 3

// do sends one request. GETs are retried with backoff on transport errors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	attempts := 1
	if method == http.MethodGet {
		attempts = maxAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i*200) * time.Millisecond):
			}
		}
		resp, err := c.send(ctx, method, u.String(), payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		return decode(resp, out)
	}
	return fmt.Errorf("%s %s failed after %d attempts: %w", method, path, attempts, lastErr)
}

func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
			Errors []string          `json:"errors"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(raw))
			if body.Error == "" {
				body.Error = http.StatusText(resp.StatusCode)
			}
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error, Fields: body.Fields, Problems: body.Errors}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
