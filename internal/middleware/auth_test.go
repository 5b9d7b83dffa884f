package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	primaryKey   = strings.Repeat("p", 32)
	secondaryKey = strings.Repeat("s", 48)
	weakKey      = "short-key"
)

func authApp(cfg config.AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(APIKeyAuth(logging.Nop(), cfg))
	app.Post("/v1/models", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestAPIKeyAuth(t *testing.T) {
	enabled := config.AuthConfig{Enabled: true, APIKeys: []string{primaryKey, "", weakKey, secondaryKey}}

	tests := []struct {
		name       string
		cfg        config.AuthConfig
		header     string
		value      string
		wantStatus int
		wantMsg    string
	}{
		{"disabled ignores missing key", config.AuthConfig{Enabled: false}, "", "", fiber.StatusOK, ""},
		{"first key via X-API-Key", enabled, "X-API-Key", primaryKey, fiber.StatusOK, ""},
		{"second key via bearer", enabled, "Authorization", "Bearer " + secondaryKey, fiber.StatusOK, ""},
		{"raw authorization header", enabled, "Authorization", primaryKey, fiber.StatusOK, ""},
		{"missing key", enabled, "", "", fiber.StatusUnauthorized, "API key is required"},
		{"unknown key", enabled, "X-API-Key", strings.Repeat("x", 32), fiber.StatusUnauthorized, "Invalid API key."},
		{"configured weak key is dropped", enabled, "X-API-Key", weakKey, fiber.StatusUnauthorized, "Invalid API key."},
		{"key with a configured prefix", enabled, "X-API-Key", primaryKey + "p", fiber.StatusUnauthorized, "Invalid API key."},
		{"only weak keys configured", config.AuthConfig{Enabled: true, APIKeys: []string{weakKey}}, "X-API-Key", weakKey, fiber.StatusUnauthorized, "Invalid API key."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/models", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := authApp(tt.cfg).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantMsg == "" {
				return
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var out models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, "UNAUTHORIZED", out.Error.Code)
			assert.Contains(t, out.Error.Message, tt.wantMsg)
		})
	}
}

func TestMatchKey(t *testing.T) {
	keys := [][]byte{[]byte(primaryKey), []byte(secondaryKey)}

	assert.True(t, matchKey(keys, []byte(primaryKey)))
	assert.True(t, matchKey(keys, []byte(secondaryKey)))
	assert.False(t, matchKey(keys, []byte(secondaryKey[:32])), "prefix of a longer key")
	assert.False(t, matchKey(keys, nil))
	assert.False(t, matchKey(nil, []byte(primaryKey)))

	// duplicate configured keys still match exactly once
	assert.True(t, matchKey([][]byte{[]byte(primaryKey), []byte(primaryKey)}, []byte(primaryKey)))
}

func TestValidateAPIKey(t *testing.T) {
	assert.True(t, ValidateAPIKey(primaryKey))
	assert.False(t, ValidateAPIKey(primaryKey[:MinAPIKeyLength-1]))
	assert.False(t, ValidateAPIKey(strings.Repeat(" ", MinAPIKeyLength)))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "pppp****", maskAPIKey(primaryKey))
	assert.Equal(t, "****", maskAPIKey("abcd"))
}
