package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name     string
		path     string
		method   string
		wantPath string
		wantNil  bool
	}{
		{name: "upload", path: "/imports", method: "POST", wantPath: "/imports"},
		{name: "regenerate", path: "/imports/abc/regenerate", method: "POST", wantPath: "/imports/*/regenerate"},
		{name: "apply", path: "/imports/abc/apply", method: "POST", wantPath: "/imports/*/apply"},
		{name: "discard uses prefix", path: "/imports/abc", method: "DELETE", wantPath: "/imports/"},
		{name: "read falls back to default", path: "/imports/abc", method: "GET", wantNil: true},
		{name: "empty wildcard segment", path: "/imports//regenerate", method: "POST", wantNil: true},
		{name: "extra segment", path: "/imports/abc/regenerate/now", method: "POST", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestMatchEndpoint_HealthUnlimited(t *testing.T) {
	got := MatchEndpoint("/health", "GET", nil)

	require.NotNil(t, got)
	assert.Equal(t, 0, got.Limit)
}
