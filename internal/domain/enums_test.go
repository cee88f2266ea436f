package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStoreBackend(t *testing.T) {
	tests := []struct {
		in   string
		want StoreBackend
		ok   bool
	}{
		{"", BackendFile, true},
		{"file", BackendFile, true},
		{" JSON ", BackendFile, true},
		{"postgres", BackendPostgres, true},
		{"PG", BackendPostgres, true},
		{"redis", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStoreBackend(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		if ok {
			assert.True(t, got.Valid())
		}
	}
	assert.False(t, StoreBackend("s3").Valid())
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeRun, ModeFor(false))
	assert.Equal(t, ModeCleanup, ModeFor(true))
	assert.Equal(t, "cleanup", ModeCleanup.String())
}
