package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-notebook-companion/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	got, err := PostJSON(context.Background(), NewClient(time.Second), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
}

func TestPostJSON_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"server error is transient", http.StatusBadGateway, true},
		{"rate limit is transient", http.StatusTooManyRequests, true},
		{"bad request is permanent", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()

			_, err := PostJSON(context.Background(), NewClient(time.Second), srv.URL, nil, struct{}{})
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantTransient, errors.Is(err, apperror.ErrTransientExternalService))
		})
	}
}

func TestPostJSON_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := PostJSON(context.Background(), NewClient(time.Second), url, nil, struct{}{})
	assert.ErrorIs(t, err, apperror.ErrTransientExternalService)
}
