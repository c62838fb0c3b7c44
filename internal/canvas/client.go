// Package canvas is a minimal client for the Canvas LMS REST API: the paginated
// course users listing and the batch submissions grade update.
package canvas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/quipper/poc/grader/pkg/repositories/roster"
)

// ErrMalformedPage is returned when a listing response is not a JSON array.
var ErrMalformedPage = errors.New("canvas: malformed page: response is not a list")

// HTTPError reports a response with a status other than 200.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("canvas: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Client talks to one Canvas instance on behalf of one access token.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	perPage   int
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPerPage sets the per_page listing parameter; 0 leaves it to the server.
func WithPerPage(n int) Option {
	return func(c *Client) { c.perPage = n }
}

// WithUserAgent sets the User-Agent header; empty keeps the net/http default.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client rooted at baseURL, e.g. "https://canvas.example.edu/api/v1".
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "canvas: parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("canvas: base url %q is not absolute", baseURL)
	}
	c := &Client{baseURL: u, token: token, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = u.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	return u.String()
}

// ListStudentsPage fetches one page (1-based) of the course's student enrollees.
// An empty, non-nil slice means the listing is exhausted.
func (c *Client) ListStudentsPage(ctx context.Context, courseID string, page int) ([]roster.Enrollee, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("enrollment_type", roster.RoleStudent)
	if c.perPage > 0 {
		q.Set("per_page", strconv.Itoa(c.perPage))
	}
	endpoint := c.endpoint("courses", courseID, "users") + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "canvas: build users request")
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// decodePage accepts only a JSON array of objects carrying a non-zero id.
// Each entry keeps its raw form.
func decodePage(body []byte) ([]roster.Enrollee, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrMalformedPage
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, errors.Wrap(ErrMalformedPage, err.Error())
	}
	out := make([]roster.Enrollee, 0, len(raw))
	for i, item := range raw {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			return nil, errors.Wrapf(ErrMalformedPage, "entry %d: null", i)
		}
		var e roster.Enrollee
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, errors.Wrapf(ErrMalformedPage, "entry %d: %v", i, err)
		}
		if e.ID == 0 {
			return nil, errors.Wrapf(ErrMalformedPage, "entry %d: missing id", i)
		}
		e.Raw = append([]byte(nil), item...)
		out = append(out, e)
	}
	return out, nil
}

// UpdateGrades posts a form-encoded batch to the assignment's
// submissions/update_grades endpoint and returns the raw response body.
func (c *Client) UpdateGrades(ctx context.Context, courseID, assignmentID string, form url.Values) ([]byte, error) {
	endpoint := c.endpoint("courses", courseID, "assignments", assignmentID, "submissions", "update_grades")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "canvas: build update_grades request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "canvas: %s %s", req.Method, req.URL.Redacted())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "canvas: read %s %s", req.Method, req.URL.Redacted())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
