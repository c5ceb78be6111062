package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "advisor-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.Header.Get("X-Request-ID"))
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["symbol"]})
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithUserAgent("advisor-test"))
	var out map[string]string
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:  MethodPost,
		URL:     srv.URL,
		Headers: map[string]string{"X-Request-ID": "abc"},
		Body:    map[string]string{"symbol": "AAPL"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out["echo"])
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", se.Body)
	assert.True(t, se.Retryable())
	assert.False(t, (&StatusError{Code: http.StatusNotFound}).Retryable())
}

func TestSendAndParseBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer srv.Close()

	var out map[string]string
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL}, &out)
	assert.ErrorContains(t, err, "decode json")
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := InternalError("save failed").WithError(cause).WithParam("portfolio", "p1")
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "p1", err.Params["portfolio"])
	assert.Equal(t, "ERR_NOT_FOUND", NotFoundError("x").Code)
}
