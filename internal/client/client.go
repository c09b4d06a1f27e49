// Package client implements the Client Facade (C9): validates an incoming
// message list, dispatches to the Local or Global search engine by name,
// and builds the conversation history passed to the engine from every
// message but the last (the live query).
package client

import (
	"context"

	"github.com/graphrag-query/go-graphrag-query/internal/conversation"
	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
	globalengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/global"
	localengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/local"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// Engine names accepted by Chat's engine parameter.
const (
	EngineLocal  = "local"
	EngineGlobal = "global"
)

// Client is the composition root's single entry point for chat completions.
type Client struct {
	Local           *localengine.Engine
	Global          *globalengine.Engine
	HistoryMaxTurns int // bounds the History built from the request's message list
}

// New returns a Client wired to both engines.
func New(local *localengine.Engine, global *globalengine.Engine) *Client {
	return &Client{Local: local, Global: global, HistoryMaxTurns: 20}
}

// Result is the engine-agnostic outcome of a single Chat call.
type Result struct {
	Verbose *types.SearchResultVerbose
	Stream  <-chan types.SearchResultChunkVerbose
}

// Chat validates messages, resolves the engine, and dispatches. stream
// selects SearchStream over Search; both engines support it.
func (c *Client) Chat(
	ctx context.Context,
	engine string,
	messages []types.Message,
	stream bool,
	localOpts localengine.SearchOptions,
	globalOpts globalengine.SearchOptions,
) (Result, error) {
	if err := ValidateMessages(messages); err != nil {
		return Result{}, err
	}

	query := messages[len(messages)-1].Content
	history := conversation.FromList(messages[:len(messages)-1], c.historyMaxTurns())

	switch engine {
	case EngineLocal, "":
		if c.Local == nil {
			return Result{}, ierrors.ErrBadEngine
		}
		if stream {
			ch, err := c.Local.SearchStream(ctx, query, history, localOpts)
			if err != nil {
				return Result{}, err
			}
			return Result{Stream: ch}, nil
		}
		verbose, err := c.Local.Search(ctx, query, history, localOpts)
		if err != nil {
			return Result{}, err
		}
		return Result{Verbose: verbose}, nil

	case EngineGlobal:
		if c.Global == nil {
			return Result{}, ierrors.ErrBadEngine
		}
		if stream {
			ch, err := c.Global.SearchStream(ctx, query, history, globalOpts)
			if err != nil {
				return Result{}, err
			}
			return Result{Stream: ch}, nil
		}
		verbose, err := c.Global.Search(ctx, query, history, globalOpts)
		if err != nil {
			return Result{}, err
		}
		return Result{Verbose: verbose}, nil

	default:
		return Result{}, ierrors.ErrBadEngine
	}
}

func (c *Client) historyMaxTurns() int {
	if c.HistoryMaxTurns <= 0 {
		return 20
	}
	return c.HistoryMaxTurns
}
