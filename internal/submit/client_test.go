package submit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mesgrid/internal/config"
)

func noBackoff(int) time.Duration { return 0 }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.BackendConfig{
		Endpoint:   srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Headers:    map[string]string{"X-Plant": "P1"},
	}, WithBackoff(noBackoff))
}

func TestClient_Do(t *testing.T) {
	var got graphqlRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "P1", r.Header.Get("X-Plant"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"ping":"pong"}}`))
	})

	data, err := client.Do(context.Background(), "ping", "query { ping }", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":"pong"}`, string(data))
	assert.Equal(t, "query { ping }", got.Query)
	assert.Equal(t, map[string]any{"a": float64(1)}, got.Variables)
}

func TestClient_GraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"qty must be positive"},{"message":"unknown item"}]}`))
	})

	_, err := client.Do(context.Background(), "saveBomItems", "mutation {}", nil)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "saveBomItems", gqlErr.Operation)
	assert.Equal(t, []string{"qty must be positive", "unknown item"}, gqlErr.Messages)
	assert.Equal(t, "graphql saveBomItems: qty must be positive; unknown item", err.Error())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	})

	_, err := client.Do(context.Background(), "ping", "query { ping }", nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "bad token", httpErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	_, err := client.Do(context.Background(), "ping", "query { ping }", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_PersistentServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Do(context.Background(), "ping", "query { ping }", nil)
	assert.Error(t, err)
}

func TestClient_WithDoer(t *testing.T) {
	sentinel := errors.New("offline")
	client := NewClient(config.BackendConfig{Endpoint: "http://mes.invalid/graphql"},
		WithDoer(doerFunc(func(*http.Request) (*http.Response, error) { return nil, sentinel })))

	_, err := client.Do(context.Background(), "ping", "query { ping }", nil)
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "posting ping to http://mes.invalid/graphql")
}

func TestClient_DoOnceDoesNotRetryServerErrors(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.DoOnce(context.Background(), "saveBomItems", "mutation {}", nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a request the backend saw is not resent")
}

func TestClient_DoOnceRetriesDialErrors(t *testing.T) {
	var calls int
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	client := NewClient(config.BackendConfig{Endpoint: "http://mes.invalid/graphql", MaxRetries: 2},
		WithBackoff(noBackoff),
		WithDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, dialErr
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"data":{"saveBomItems":{"createdIds":[1]}}}`)),
			}, nil
		})))

	data, err := client.DoOnce(context.Background(), "saveBomItems", "mutation {}", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"saveBomItems":{"createdIds":[1]}}`, string(data))
	assert.Equal(t, 3, calls)
}

func TestClient_DoOnceGivesUpOnDialErrors(t *testing.T) {
	var calls int
	client := NewClient(config.BackendConfig{Endpoint: "http://mes.invalid/graphql", MaxRetries: 1},
		WithBackoff(noBackoff),
		WithDoer(doerFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		})))

	_, err := client.DoOnce(context.Background(), "saveBomItems", "mutation {}", nil)
	var opErr *net.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 2, calls)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }
