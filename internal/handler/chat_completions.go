package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphrag-query/go-graphrag-query/internal/client"
	globalctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/global"
	localctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/local"
	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	"github.com/graphrag-query/go-graphrag-query/internal/logger"
	"github.com/graphrag-query/go-graphrag-query/internal/models/chat"
	globalengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/global"
	localengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/local"
	"github.com/graphrag-query/go-graphrag-query/internal/streaming"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// ChatCompletions implements POST {prefix}/chat/completions, OpenAI-wire
// compatible, forwarding to the Local or Global search engine via the
// request's "engine" field ("local" by default).
func ChatCompletions(c *client.Client, log logger.Logger) gin.HandlerFunc {
	return func(g *gin.Context) {
		var req types.ChatCompletionRequest
		if err := g.ShouldBindJSON(&req); err != nil {
			writeError(g, ierrors.Wrap(ierrors.ErrValidation, err))
			return
		}

		chatOpts := chatOptionsFromRequest(req)
		localOpts := localengine.SearchOptions{
			ContextOptions: localctx.DefaultOptions(),
			ChatOptions:    chatOpts,
		}
		globalOpts := globalengine.SearchOptions{
			ContextOptions: globalctx.DefaultOptions(),
			ChatOptions:    chatOpts,
		}

		result, err := c.Chat(
			g.Request.Context(),
			req.Engine,
			req.Messages,
			req.Stream,
			localOpts,
			globalOpts,
		)
		if err != nil {
			if log != nil {
				log.Errorf("chat completion failed: %v", err)
			}
			writeError(g, err)
			return
		}

		created := time.Now().Unix()
		id := streaming.NewChatCompletionID()

		if result.Stream != nil {
			streamResponse(g, id, created, result.Stream)
			return
		}

		g.JSON(http.StatusOK, streaming.ToCompletionResponse(id, created, result.Verbose))
	}
}

func streamResponse(g *gin.Context, id string, created int64, ch <-chan types.SearchResultChunkVerbose) {
	g.Header("Content-Type", "text/event-stream")
	g.Header("Cache-Control", "no-cache")
	g.Header("Connection", "keep-alive")
	g.Status(http.StatusOK)

	g.Stream(func(w io.Writer) bool {
		chunk, ok := <-ch
		if !ok {
			_, _ = w.Write(streaming.Done())
			return false
		}
		_, _ = w.Write(streaming.Frame(streaming.ToChunkResponse(id, created, chunk)))
		return true
	})
}

// chatOptionsFromRequest maps every passthrough field onto the internal
// chat.Options shape, unchanged, for forwarding to the upstream model.
func chatOptionsFromRequest(req types.ChatCompletionRequest) chat.Options {
	return chat.Options{
		Temperature:         req.Temperature,
		TopP:                req.TopP,
		MaxTokens:           req.MaxTokens,
		MaxCompletionTokens: req.MaxCompletionTokens,
		FrequencyPenalty:    req.FrequencyPenalty,
		PresencePenalty:     req.PresencePenalty,
		Stop:                req.Stop,
		Seed:                req.Seed,
		ResponseFormat:      req.ResponseFormat,
		ToolChoice:          req.ToolChoice,
		Tools:               req.Tools,
		LogitBias:           req.LogitBias,
		LogProbs:            req.LogProbs,
		TopLogProbs:         req.TopLogProbs,
		User:                req.User,
		StreamOptions:       req.StreamOptions,
		ServiceTier:         req.ServiceTier,
		Store:               req.Store,
		ParallelToolCalls:   req.ParallelToolCalls,
	}
}
