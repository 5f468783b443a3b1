package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/listings", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "lamp", body["title"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"l1"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	status, err := New(srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/listings",
		Query:  url.Values{"limit": {"20"}},
		Token:  "tok",
		Body:   map[string]string{"title": "lamp"},
		Accept: Status(http.StatusCreated),
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "l1", out.ID)
}

func TestDoOmitsAuthorizationWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Do(context.Background(), Request{
		Method: http.MethodGet, Path: "/x", Accept: Status(http.StatusOK),
	}, nil)
	require.NoError(t, err)
}

func TestDoRejectsUnacceptedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"o1"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost, Path: "/orders", Accept: Status(http.StatusCreated),
	}, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusOK, se.Status)
	assert.JSONEq(t, `{"id":"o1"}`, string(se.Body))
	assert.True(t, IsStatus(err, http.StatusOK))
}

func TestDoAcceptedNotFoundSkipsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer srv.Close()

	out := map[string]any{}
	status, err := New(srv.URL).Do(context.Background(), Request{
		Method: http.MethodGet, Path: "/listings/x", Accept: Status(http.StatusOK, http.StatusNotFound),
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, out)
}

func TestDoNullBodyLeavesZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	var out []string
	_, err := New(srv.URL).Do(context.Background(), Request{
		Method: http.MethodGet, Path: "/messages/conversations", Accept: Status(http.StatusOK),
	}, &out)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDoLogsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	calls := 0
	c := New(srv.URL, WithLogger(logger), WithHTTPClient(&http.Client{
		Transport: roundTripCounter{next: http.DefaultTransport, n: &calls},
	}))

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet, Path: "/me", Accept: Status(http.StatusOK),
	}, nil)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Contains(t, buf.String(), "api server error")
	assert.Contains(t, buf.String(), "status=502")
	assert.Contains(t, buf.String(), "upstream down")
	assert.Equal(t, 1, calls, "server errors are not retried")
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Do(context.Background(), Request{
		Method: http.MethodGet, Path: "/slow", Accept: Status(http.StatusOK),
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestDoRequiresAcceptPredicate(t *testing.T) {
	_, err := New("http://unused").Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil)
	assert.Error(t, err)
}

func TestUpdateAuthToken(t *testing.T) {
	var got []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UpdateAuthTokenPath, r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, body["token"])
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	tok := "abc"
	require.NoError(t, c.UpdateAuthToken(context.Background(), &tok))
	require.NoError(t, c.UpdateAuthToken(context.Background(), nil))

	assert.Equal(t, []any{"abc", nil}, got)
}

type roundTripCounter struct {
	next http.RoundTripper
	n    *int
}

func (r roundTripCounter) RoundTrip(req *http.Request) (*http.Response, error) {
	*r.n++
	return r.next.RoundTrip(req)
}
