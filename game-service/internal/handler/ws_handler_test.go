package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOriginCheckerEmptyAllowlistAllowsAll(t *testing.T) {
	check := originChecker(nil, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://evil.example")
	assert.True(t, check(r))
}

func TestOriginCheckerAllowlist(t *testing.T) {
	check := originChecker([]string{"https://game.example", "https://staging.game.example"}, zerolog.Nop())

	allowed := httptest.NewRequest("GET", "/ws", nil)
	allowed.Header.Set("Origin", "https://game.example")
	assert.True(t, check(allowed))

	rejected := httptest.NewRequest("GET", "/ws", nil)
	rejected.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(rejected))
}

func TestOriginCheckerAllowsMissingOriginHeader(t *testing.T) {
	check := originChecker([]string{"https://game.example"}, zerolog.Nop())

	// Не-браузерный клиент не шлет Origin
	r := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(r))
}
