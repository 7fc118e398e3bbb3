// Package client is a typed HTTP client for the books API. Every response is
// decoded as an envelope: failure envelopes come back as *APIError, anything
// that can't be read as an envelope as *TransportError.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/shishobooks/booktracker/pkg/version"
)

const (
	DefaultBaseURL = "http://localhost:3001/api"
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// BooksAPI is implemented by *Client.
type BooksAPI interface {
	ListBooks(ctx context.Context) ([]*models.Book, error)
	GetBook(ctx context.Context, id int) (*models.Book, error)
	CreateBook(ctx context.Context, book NewBook) (*models.Book, error)
	UpdateBook(ctx context.Context, id int, patch BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, id int) error
}

var _ BooksAPI = (*Client)(nil)

type NewBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BookPatch is a partial update. Nil fields aren't sent.
type BookPatch struct {
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	Read   *bool   `json:"read,omitempty"`
}

type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// New builds a client for baseURL, e.g. "http://localhost:3001/api". An empty
// baseURL uses DefaultBaseURL.
func New(baseURL string) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: version.UserAgent(),
	}, nil
}

// WithHTTPClient swaps the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	return &Client{baseURL: c.baseURL, http: hc, userAgent: c.userAgent}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListBooks(ctx context.Context) ([]*models.Book, error) {
	books := []*models.Book{}
	if err := c.do(ctx, http.MethodGet, "/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	if err := c.do(ctx, http.MethodGet, bookPath(id), nil, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (c *Client) CreateBook(ctx context.Context, newBook NewBook) (*models.Book, error) {
	book := &models.Book{}
	if err := c.do(ctx, http.MethodPost, "/books", newBook, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int, patch BookPatch) (*models.Book, error) {
	book := &models.Book{}
	if err := c.do(ctx, http.MethodPatch, bookPath(id), patch, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

func bookPath(id int) string {
	return "/books/" + strconv.Itoa(id)
}

type responseEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: describeBody(resp, raw), Err: err}
	}
	if env.Success == nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: "Malformed API response"}
	}
	if !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "API error"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: "decode data", Err: err}
	}
	return nil
}

// describeBody summarizes an undecodable response for error messages.
func describeBody(resp *http.Response, raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return resp.Status
	}
	return resp.Status + ": " + text
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.Wrapf(err, "parse base url %q", raw)
	}
	if u.Host == "" {
		return "", errors.Errorf("base url %q has no host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
