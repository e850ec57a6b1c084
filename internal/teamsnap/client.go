// Package teamsnap wraps the TeamSnap v3 REST API. The Client is the
// blocking scripting variant: one request in flight per call, bearer
// auth injected from a TokenProvider, responses decoded through the
// Collection+JSON codec into flat Records. ToolClient layers a
// read-only gate and concurrency guarantees on top for the MCP server.
package teamsnap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
)

// defaultBaseURL is the versioned TeamSnap API root.
const defaultBaseURL = "https://api.teamsnap.com/v3"

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxResponseBytes = 1024 * 1024
)

// TokenProvider supplies a valid bearer token before each request.
// auth.Authorizer implements it with the full persisted lifecycle;
// StaticToken implements it for the env-var override.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Refresher is the optional TokenProvider capability backing the
// one-shot 401 retry: force a refresh even when the recorded expiry
// says the token is still good.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token with no refresh capability,
// used when TEAMSNAP_ACCESS_TOKEN overrides the persisted store.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(_ context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty access token")
	}

	return string(t), nil
}

// Client talks to the TeamSnap API.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	logger     *slog.Logger

	// BaseURL is the API root requests are made against. Overridable
	// for tests and staging environments; set before first use.
	BaseURL string

	// lastVersion tracks the API version advertised by responses so a
	// mid-flight version bump can be logged. Advisory only.
	versionMu   sync.Mutex
	lastVersion string

	// Typed entity services. A small closed set instead of dynamic
	// path interpolation per call site.
	Teams           *TeamsService
	Members         *MembersService
	Events          *EventsService
	Availabilities  *AvailabilitiesService
	Assignments     *AssignmentsService
	Locations       *LocationsService
	Opponents       *OpponentsService
	ForumTopics     *ForumTopicsService
	ForumPosts      *ForumPostsService
	BroadcastEmails *BroadcastEmailsService
	Messages        *MessagesService
}

// NewClient creates an API client authenticating via the given
// TokenProvider. If httpClient is nil, a client with a 30-second
// timeout is created.
func NewClient(tokens TokenProvider, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	c := &Client{
		httpClient: httpClient,
		BaseURL:    defaultBaseURL,
		tokens:     tokens,
		logger:     logger,
	}

	c.Teams = &TeamsService{service{c, "teams"}}
	c.Members = &MembersService{service{c, "members"}}
	c.Events = &EventsService{service{c, "events"}}
	c.Availabilities = &AvailabilitiesService{service{c, "availabilities"}}
	c.Assignments = &AssignmentsService{service{c, "assignments"}}
	c.Locations = &LocationsService{service{c, "locations"}}
	c.Opponents = &OpponentsService{service{c, "opponents"}}
	c.ForumTopics = &ForumTopicsService{service{c, "forum_topics"}}
	c.ForumPosts = &ForumPostsService{service{c, "forum_posts"}}
	c.BroadcastEmails = &BroadcastEmailsService{service{c, "broadcast_emails"}}
	c.Messages = &MessagesService{service{c, "messages"}}

	return c
}

// resolveURL turns a relative endpoint into an absolute URL. Pagination
// "next" hrefs arrive absolute and pass through untouched.
func (c *Client) resolveURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	return c.BaseURL + "/" + strings.TrimPrefix(endpoint, "/")
}

// do performs one authenticated request and returns the raw response
// body. A 401 triggers a single forced refresh and retry when the
// TokenProvider supports it; auth errors from the provider propagate
// unchanged so callers see the re-authorization signal directly.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	raw, status, err := c.send(ctx, method, endpoint, query, body, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		refresher, ok := c.tokens.(Refresher)
		if !ok {
			return nil, c.apiError(status, raw)
		}

		// The token may have expired between our expiry check and the
		// server's. Refresh once and retry; a second 401 surfaces.
		token, err = refresher.Refresh(ctx)
		if err != nil {
			return nil, err
		}

		raw, status, err = c.send(ctx, method, endpoint, query, body, token)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, c.apiError(status, raw)
	}

	return raw, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body []byte, token string) ([]byte, int, error) {
	u := c.resolveURL(endpoint)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}

		u += sep + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyTransportError(fmt.Errorf("sending %s %s: %w", method, endpoint, err))
	}
	defer resp.Body.Close()

	// Cap response reads at 1MB. API responses are small JSON payloads.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	return raw, resp.StatusCode, nil
}

// apiError builds an APIError from a non-2xx body, preferring the
// Collection+JSON error message when present.
func (c *Client) apiError(status int, raw []byte) *APIError {
	msg := gjson.GetBytes(raw, "collection.error.message").String()
	if msg == "" {
		msg = sanitizeResponseBody(raw)
	}

	return &APIError{StatusCode: status, Message: msg}
}

// inspect probes a raw response for the advertised API version and
// deprecated links. Findings are logged, never raised: this is an
// advisory signal about upstream drift and must not block the call.
func (c *Client) inspect(raw []byte) {
	if version := gjson.GetBytes(raw, "collection.version").String(); version != "" {
		c.versionMu.Lock()
		last := c.lastVersion
		c.lastVersion = version
		c.versionMu.Unlock()

		if last != "" && last != version {
			c.logger.Warn("teamsnap API version changed",
				slog.String("from", last), slog.String("to", version))
		}
	}

	gjson.GetBytes(raw, "collection.links").ForEach(func(_, link gjson.Result) bool {
		if link.Get("deprecated").Bool() {
			c.logger.Warn("teamsnap API endpoint deprecated",
				slog.String("rel", link.Get("rel").String()),
				slog.String("prompt", link.Get("prompt").String()))
		}

		return true
	})
}

// APIVersion returns the version last advertised by the server, or ""
// when no response has been seen yet.
func (c *Client) APIVersion() string {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()

	return c.lastVersion
}

// Page is one page of search results. Next follows the envelope's
// "next" link lazily; a nil page with a nil error means the final page
// has been reached.
type Page struct {
	Records []*collection.Record

	client *Client
	next   string
}

// HasNext reports whether the response carried a "next" link.
func (p *Page) HasNext() bool { return p.next != "" }

// Next fetches the following page, or returns (nil, nil) when there is
// no next link.
func (p *Page) Next(ctx context.Context) (*Page, error) {
	if p.next == "" {
		return nil, nil
	}

	return p.client.getPage(ctx, p.next, nil)
}

// getPage performs a GET and decodes the envelope into records plus
// the pagination cursor.
func (c *Client) getPage(ctx context.Context, endpoint string, query url.Values) (*Page, error) {
	raw, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return nil, err
	}

	c.inspect(raw)

	env, err := collection.Decode(raw)
	if err != nil {
		return nil, err
	}

	records, err := collection.DecodeCollection(env)
	if err != nil {
		return nil, err
	}

	next, _ := collection.ExtractLink(env.Collection.Links, "next")

	return &Page{Records: records, client: c, next: next}, nil
}

// getOne performs a GET expected to return exactly one item.
func (c *Client) getOne(ctx context.Context, endpoint string) (*collection.Record, error) {
	page, err := c.getPage(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if len(page.Records) == 0 {
		return nil, &collection.MalformedEnvelope{Reason: fmt.Sprintf("no item in response from %s", endpoint)}
	}

	return page.Records[0], nil
}

// writeItem sends a create/update body (the envelope's template shape)
// and decodes the echoed item.
func (c *Client) writeItem(ctx context.Context, method, endpoint string, fields *collection.Record) (*collection.Record, error) {
	body, err := collection.EncodeBody(fields)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, method, endpoint, nil, body)
	if err != nil {
		return nil, err
	}

	c.inspect(raw)

	env, err := collection.Decode(raw)
	if err != nil {
		return nil, err
	}

	records, err := collection.DecodeCollection(env)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, &collection.MalformedEnvelope{Reason: fmt.Sprintf("write to %s echoed no item", endpoint)}
	}

	return records[0], nil
}

// deleteItem issues a DELETE. TeamSnap answers deletes with an empty
// body, so success is the status code alone.
func (c *Client) deleteItem(ctx context.Context, endpoint string) error {
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)
	return err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*collection.Record, error) {
	return c.getOne(ctx, "/me")
}

// User returns a specific user.
func (c *Client) User(ctx context.Context, id int64) (*collection.Record, error) {
	return c.getOne(ctx, fmt.Sprintf("/users/%d", id))
}

// Response is the result of the generic Request escape hatch: the raw
// body plus, when the body is a Collection+JSON envelope, the decoded
// records.
type Response struct {
	Raw     []byte
	Records []*collection.Record
}

// Request is the escape hatch for endpoints without a dedicated
// method. fields, when non-nil, is encoded as a template body.
func (c *Client) Request(ctx context.Context, method, endpoint string, query url.Values, fields *collection.Record) (*Response, error) {
	var body []byte

	if fields != nil {
		encoded, err := collection.EncodeBody(fields)
		if err != nil {
			return nil, err
		}

		body = encoded
	}

	raw, err := c.do(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}

	resp := &Response{Raw: raw}

	if gjson.GetBytes(raw, "collection").Exists() {
		c.inspect(raw)

		env, err := collection.Decode(raw)
		if err != nil {
			return nil, err
		}

		records, err := collection.DecodeCollection(env)
		if err != nil {
			return nil, err
		}

		resp.Records = records
	}

	return resp, nil
}

// Root fetches the API root: the version and the links, queries and
// commands advertised for every resource. The monitor snapshots it.
func (c *Client) Root(ctx context.Context) (*Response, error) {
	return c.Request(ctx, http.MethodGet, "/", nil, nil)
}
