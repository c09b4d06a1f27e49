package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/graphrag-query/go-graphrag-query/internal/client"
	"github.com/graphrag-query/go-graphrag-query/internal/config"
	"github.com/graphrag-query/go-graphrag-query/internal/logger"
)

// NewRouter builds the gin engine exposing the chat completions endpoint
// under cfg.Server.Prefix, with CORS, request-id, and optional bearer auth.
func NewRouter(cfg *config.Config, c *client.Client, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(RequestID())

	group := r.Group(cfg.Server.Prefix)
	group.Use(AuthMiddleware(cfg.Server.APIKeys))
	group.POST("/chat/completions", ChatCompletions(c, log))

	return r
}
