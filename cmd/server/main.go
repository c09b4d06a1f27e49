// Command server is the composition root for the graph-augmented retrieval
// query engine: it loads configuration, builds the Local and Global
// context builders from the on-disk graph store, wires the chat and
// embedding model clients, and serves the OpenAI-compatible chat
// completions endpoint over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphrag-query/go-graphrag-query/internal/client"
	"github.com/graphrag-query/go-graphrag-query/internal/config"
	"github.com/graphrag-query/go-graphrag-query/internal/graphstore"
	"github.com/graphrag-query/go-graphrag-query/internal/handler"
	"github.com/graphrag-query/go-graphrag-query/internal/logger"
	"github.com/graphrag-query/go-graphrag-query/internal/models/chat"
	"github.com/graphrag-query/go-graphrag-query/internal/models/embedding"
	globalengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/global"
	localengine "github.com/graphrag-query/go-graphrag-query/internal/searchengine/local"
	"github.com/graphrag-query/go-graphrag-query/internal/vectorstore"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	chatModel, err := chat.New(chat.Config{
		Provider: cfg.Chat.Provider,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
		Model:    cfg.Chat.Model,
	})
	if err != nil {
		log.Errorf("failed to build chat model: %v", err)
		os.Exit(1)
	}

	embedder, err := embedding.New(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		MaxTokens: cfg.Embedding.MaxTokens,
	})
	if err != nil {
		log.Errorf("failed to build embedding model: %v", err)
		os.Exit(1)
	}

	loader := graphstore.New(cfg.GraphStore.Directory)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var store vectorstore.Store
	if cfg.VectorStore.URI != "" {
		dims := embedder.Dimensions()
		if dims == 0 {
			dims = 1536 // text-embedding-3-small default; overridden by Config.Dimensions when set
		}
		qs, err := vectorstore.NewQdrantStore(cfg.VectorStore.URI, cfg.VectorStore.CollectionName, uint64(dims))
		if err != nil {
			log.Errorf("failed to connect to vector store: %v", err)
			os.Exit(1)
		}
		store = qs
	}

	localBuilder, err := loader.ToLocalContextBuilder(ctx, graphstore.LocalLoadOptions{
		CommunityLevel: cfg.Search.CommunityLevelLocal,
		VectorStore:    store,
		Embedder:       embedder,
	})
	if err != nil {
		log.Errorf("failed to load local context builder: %v", err)
		os.Exit(1)
	}

	globalBuilder, err := loader.ToGlobalContextBuilder(ctx, graphstore.GlobalLoadOptions{
		CommunityLevel: cfg.Search.CommunityLevelGlobal,
	})
	if err != nil {
		log.Errorf("failed to load global context builder: %v", err)
		os.Exit(1)
	}

	localEngine := localengine.New(chatModel, localBuilder)
	localEngine.Logger = log

	globalEngine := globalengine.New(chatModel, globalBuilder)
	globalEngine.Logger = log
	if cfg.Search.ConcurrentCalls > 0 {
		globalEngine.Concurrency = int64(cfg.Search.ConcurrentCalls)
	}

	c := client.New(localEngine, globalEngine)

	router := handler.NewRouter(cfg, c, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Infof("listening on %s (prefix %s)", cfg.Server.Addr, cfg.Server.Prefix)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	log.Infof("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}
