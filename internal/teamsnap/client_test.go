package teamsnap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// refreshingTokens is a TokenProvider with refresh capability: Refresh
// hands out a new token and counts how often it was invoked.
type refreshingTokens struct {
	current   atomic.Value
	refreshed atomic.Int64
}

func newRefreshingTokens(initial string) *refreshingTokens {
	rt := &refreshingTokens{}
	rt.current.Store(initial)

	return rt
}

func (r *refreshingTokens) Token(_ context.Context) (string, error) {
	return r.current.Load().(string), nil
}

func (r *refreshingTokens) Refresh(_ context.Context) (string, error) {
	n := r.refreshed.Add(1)
	tok := fmt.Sprintf("refreshed-%d", n)
	r.current.Store(tok)

	return tok, nil
}

func newTestClient(t *testing.T, tokens TokenProvider, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(tokens, srv.Client(), discardLogger())
	c.BaseURL = srv.URL

	return c
}

func membersEnvelope() string {
	return `{"collection":{
		"version":"3.870.0",
		"links":[{"rel":"self","href":"/members/search"}],
		"items":[
			{"data":[{"name":"id","value":1},{"name":"first_name","value":"Dana"},{"name":"last_name","value":"Okafor"}]},
			{"data":[{"name":"id","value":2},{"name":"first_name","value":"Sam"},{"name":"last_name","value":"Ruiz"}]}
		]}}`
}

func TestClient_SearchDecodesRecords(t *testing.T) {
	var gotAuth, gotAccept, gotTeamID string

	tokens := StaticToken("tok-1")
	client := newTestClient(t, tokens, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotTeamID = r.URL.Query().Get("team_id")

		assert.Equal(t, "/members/search", r.URL.Path)
		fmt.Fprint(w, membersEnvelope())
	}))

	page, err := client.Members.Search(context.Background(), MemberQuery{TeamID: 456})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "456", gotTeamID)

	require.Len(t, page.Records, 2)
	assert.Equal(t, "Dana", page.Records[0].Get("first_name"))
	assert.Equal(t, "Ruiz", page.Records[1].Get("last_name"))
	assert.False(t, page.HasNext())

	assert.Equal(t, "3.870.0", client.APIVersion())
}

func TestClient_EmptySearchIsEmptySlice(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collection":{"items":[]}}`)
	}))

	page, err := client.Teams.Search(context.Background(), TeamQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestClient_UnauthorizedTriggersOneRefreshRetry(t *testing.T) {
	tokens := newRefreshingTokens("stale")

	var requests atomic.Int64

	client := newTestClient(t, tokens, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"collection":{"error":{"message":"token expired"}}}`)

			return
		}

		assert.Equal(t, "Bearer refreshed-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, membersEnvelope())
	}))

	page, err := client.Members.Search(context.Background(), MemberQuery{TeamID: 1})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	assert.Equal(t, int64(1), tokens.refreshed.Load(), "exactly one refresh")
	assert.Equal(t, int64(2), requests.Load(), "original request plus one retry")
}

func TestClient_SecondUnauthorizedSurfacesAPIError(t *testing.T) {
	tokens := newRefreshingTokens("stale")

	var requests atomic.Int64

	client := newTestClient(t, tokens, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"collection":{"error":{"message":"revoked"}}}`)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Equal(t, "revoked", ae.Message)
	assert.Equal(t, int64(2), requests.Load(), "no endless retry loop")
}

func TestClient_StaticTokenCannotRetryUnauthorized(t *testing.T) {
	var requests atomic.Int64

	client := newTestClient(t, StaticToken("fixed"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Equal(t, int64(1), requests.Load(), "no refresh capability, no retry")
}

func TestClient_APIErrorPrefersEnvelopeMessage(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"collection":{"error":{"message":"team not found"}}}`)
	}))

	_, err := client.Teams.Get(context.Background(), 999)
	require.Error(t, err)

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ae.StatusCode)
	assert.Equal(t, "team not found", ae.Message)
}

func TestClient_APIErrorSanitizesNonEnvelopeBody(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>\x00bad gateway</html>")
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, ae.StatusCode)
	assert.NotContains(t, ae.Message, "\x00")
	assert.Contains(t, ae.Message, "bad gateway")
}

func TestClient_NonEnvelopeSuccessBodyIsMalformed(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>login page</html>")
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, collection.IsMalformed(err))
}

func TestClient_GetOneEmptyCollectionIsMalformed(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collection":{"items":[]}}`)
	}))

	_, err := client.Teams.Get(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, collection.IsMalformed(err))
}

func TestClient_PaginationFollowsNextLink(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/events/search", func(w http.ResponseWriter, _ *http.Request) {
		// The next href is absolute, as the API sends it.
		fmt.Fprintf(w, `{"collection":{
			"links":[{"rel":"next","href":"%s/events/search/page2"}],
			"items":[{"data":[{"name":"id","value":1}]}]}}`, srv.URL)
	})
	mux.HandleFunc("/events/search/page2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collection":{"items":[{"data":[{"name":"id","value":2}]}]}}`)
	})

	client := NewClient(StaticToken("tok"), srv.Client(), discardLogger())
	client.BaseURL = srv.URL

	page, err := client.Events.Search(context.Background(), EventQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.True(t, page.HasNext())

	page2, err := page.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, page2)
	require.Len(t, page2.Records, 1)

	id, ok := page2.Records[0].Int("id")
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	assert.False(t, page2.HasNext())

	end, err := page2.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, end, "past the last page: no page, no error")
}

func TestClient_CreateSendsTemplateBody(t *testing.T) {
	var gotBody []byte
	var gotMethod, gotContentType string

	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		assert.Equal(t, "/events", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"collection":{"items":[{"data":[{"name":"id","value":99},{"name":"name","value":"Practice"}]}]}}`)
	}))

	rec, err := client.Events.Create(context.Background(), EventFields{
		TeamID:    456,
		Name:      "Practice",
		StartDate: "2026-09-01T18:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"template":{"data":[
		{"name":"team_id","value":456},
		{"name":"name","value":"Practice"},
		{"name":"start_date","value":"2026-09-01T18:00:00Z"},
		{"name":"is_game","value":false}
	]}}`, string(gotBody))

	id, ok := rec.Int("id")
	require.True(t, ok)
	assert.Equal(t, int64(99), id)
}

func TestClient_UpdateUsesPatch(t *testing.T) {
	var gotMethod, gotPath string

	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"collection":{"items":[{"data":[{"name":"id","value":5},{"name":"notes","value":"moved"}]}]}}`)
	}))

	fields := collection.NewRecord()
	fields.Set("notes", "moved")

	rec, err := client.Events.Update(context.Background(), 5, fields)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/events/5", gotPath)
	assert.Equal(t, "moved", rec.Get("notes"))
}

func TestClient_DeleteAcceptsEmptyBody(t *testing.T) {
	var gotMethod, gotPath string

	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Events.Delete(context.Background(), 42))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/events/42", gotPath)
}

func TestClient_AvailabilityStatusUpdate(t *testing.T) {
	var gotBody []byte

	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)

		assert.Equal(t, "/availabilities/77", r.URL.Path)
		fmt.Fprint(w, `{"collection":{"items":[{"data":[{"name":"id","value":77},{"name":"status","value":"yes"}]}]}}`)
	}))

	rec, err := client.Availabilities.UpdateStatus(context.Background(), 77, "yes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"template":{"data":[{"name":"status","value":"yes"}]}}`, string(gotBody))
	assert.Equal(t, "yes", rec.Get("status"))
}

func TestClient_RequestEscapeHatch(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom_endpoint", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("flavor"))
		fmt.Fprint(w, `{"collection":{"items":[{"data":[{"name":"id","value":3}]}]}}`)
	}))

	query := map[string][]string{"flavor": {"7"}}

	resp, err := client.Request(context.Background(), http.MethodGet, "/custom_endpoint", query, nil)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.NotEmpty(t, resp.Raw)
}

func TestClient_RequestNonEnvelopeBodyReturnsRawOnly(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	}))

	resp, err := client.Request(context.Background(), http.MethodGet, "/healthz", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Records)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Raw))
}

func TestClient_DeadlineBecomesTimeoutError(t *testing.T) {
	client := newTestClient(t, StaticToken("tok"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"collection":{"items":[]}}`)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "deadline errors classify as timeouts: %v", err)
}

func TestClient_AuthErrorPropagatesUnchanged(t *testing.T) {
	failing := tokenProviderFunc(func(context.Context) (string, error) {
		return "", fmt.Errorf("not authenticated")
	})

	var requests atomic.Int64

	client := newTestClient(t, failing, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
	assert.Zero(t, requests.Load(), "no request without a token")
}

type tokenProviderFunc func(ctx context.Context) (string, error)

func (f tokenProviderFunc) Token(ctx context.Context) (string, error) { return f(ctx) }
