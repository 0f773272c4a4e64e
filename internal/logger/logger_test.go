package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	got := sanitizeKVs([]interface{}{"admin_token", "abc", "sessionId", "s-1", "apiKey", "k", "dangling"})

	assert.Equal(t, []interface{}{"admin_token", "[REDACTED]", "sessionId", "s-1", "apiKey", "[REDACTED]", "dangling"}, got)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).SugaredLogger)

	l := Nop()
	assert.Same(t, l, OrNop(l))
}
