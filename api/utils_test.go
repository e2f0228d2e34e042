package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"conduit/core"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		notContains []string
		contains    []string
	}{
		{
			name:        "mongo connection string",
			input:       "failed to connect: mongodb://admin:pw@db.internal:27017/conduit",
			notContains: []string{"admin:pw"},
			contains:    []string{"[CONNECTION]"},
		},
		{
			name:        "private ip",
			input:       "dial tcp 192.168.1.20:6379: refused",
			notContains: []string{"192.168.1.20"},
			contains:    []string{"[PRIVATE_IP]"},
		},
		{
			name:        "secret value",
			input:       "bad config token=abcd1234",
			notContains: []string{"abcd1234"},
			contains:    []string{"token=[REDACTED]"},
		},
		{
			name:        "file path",
			input:       "open /etc/conduit/secret.yaml failed",
			notContains: []string{"/etc/conduit"},
			contains:    []string{"[FILE_PATH]"},
		},
		{
			name:     "plain message untouched",
			input:    "Failed to list actions",
			contains: []string{"Failed to list actions"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeErrorMessage(tt.input)
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
		})
	}
}

func TestSanitizeErrorMessageTruncates(t *testing.T) {
	got := sanitizeErrorMessage(strings.Repeat("a", core.MaxErrorMessageLength*2))
	assert.Len(t, got, core.MaxErrorMessageLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &core.ValidationError{}, http.StatusBadRequest},
		{"invalid id", fmt.Errorf("%w: x", core.ErrInvalidID), http.StatusBadRequest},
		{"unknown method", fmt.Errorf("%w: x", core.ErrUnknownMethod), http.StatusBadRequest},
		{"not found", core.ErrActionNotFound, http.StatusNotFound},
		{"platform 404", &core.PlatformError{Status: 404}, http.StatusNotFound},
		{"not connected", core.ErrNotConnected, http.StatusConflict},
		{"version conflict", core.ErrVersionConflict, http.StatusConflict},
		{"too many requests", core.ErrTooManyRequests, http.StatusServiceUnavailable},
		{"platform 500", &core.PlatformError{Status: 500}, http.StatusBadGateway},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := classifyError("do it", tt.err, http.StatusInternalServerError)
			assert.Equal(t, tt.status, status)
		})
	}

	_, body := classifyError("save action", errors.New("boom"), http.StatusInternalServerError)
	assert.Equal(t, "Failed to save action", body.Error)
}
