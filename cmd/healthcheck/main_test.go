package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "healthy", status: http.StatusOK, body: `{"status":"ok","language_model":"missing","time":"2026-01-01T00:00:00Z"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"internal server error"}`, wantErr: "unexpected status 500"},
		{name: "degraded body", status: http.StatusOK, body: `{"status":"starting"}`, wantErr: `status "starting"`},
		{name: "not json", status: http.StatusOK, body: `<html></html>`, wantErr: "decode health response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := check(context.Background(), srv.Client(), srv.URL+"/api/v1/health")
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api/v1/health"
	srv.Close()

	require.Error(t, check(context.Background(), &http.Client{Timeout: time.Second}, url))
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:8080"},
		{raw: "garbage", want: "127.0.0.1:8080"},
		{raw: ":9090", want: "127.0.0.1:9090"},
		{raw: "0.0.0.0:8081", want: "127.0.0.1:8081"},
		{raw: "[::]:8082", want: "[::1]:8082"},
		{raw: "10.0.0.5:8083", want: "10.0.0.5:8083"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAddr(tt.raw), "raw %q", tt.raw)
	}
}

func TestParseTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, parseTimeout(""))
	assert.Equal(t, defaultTimeout, parseTimeout("soon"))
	assert.Equal(t, defaultTimeout, parseTimeout("-1s"))
	assert.Equal(t, 5*time.Second, parseTimeout("5s"))
}
