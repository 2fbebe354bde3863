package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpirationMillis(t *testing.T) {
	// Обычная задержка переводится в миллисекунды
	assert.Equal(t, "60000", expirationMillis(60*time.Second))
	assert.Equal(t, "1500", expirationMillis(1500*time.Millisecond))

	// Нулевая и отрицательная задержки схлопываются в немедленный dead-letter
	assert.Equal(t, "0", expirationMillis(0))
	assert.Equal(t, "0", expirationMillis(-5*time.Second))
}

func TestRevocationKey(t *testing.T) {
	assert.Equal(t, "revoked_task:abc-123", revocationKey("abc-123"))
}
