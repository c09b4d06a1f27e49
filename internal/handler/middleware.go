// Package handler wires the engine Client onto a gin HTTP server exposing
// the OpenAI-compatible Chat Completions endpoint.
package handler

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

const requestIDHeader = "x-request-id"

// RequestID echoes an inbound x-request-id header or generates a new
// "req_<32 hex>" one, and stores it in the gin context for handlers/logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = "req_" + randomHex(16)
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

// AuthMiddleware checks the Authorization: Bearer <key> header against an
// allow-list. An empty allow-list disables auth entirely (local/dev mode).
func AuthMiddleware(apiKeys []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		allowed[k] = struct{}{}
	}
	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		key := strings.TrimPrefix(auth, "Bearer ")
		if key == "" || key == auth {
			writeError(c, ierrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(c, ierrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(ierrors.HTTPStatus(err), types.ErrorResponse{Message: err.Error()})
}
