// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	internal_agent_embedding "github.com/cartlineai/api/assistant-api/internal/agent/embedding"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	assistant_routers "github.com/cartlineai/api/assistant-api/router"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/connectors"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	redis, err := connectors.NewRedisConnector(&cfg.RedisConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer redis.Close()

	var pgOpts []connectors.PostgresOption
	if ttl := cfg.PostgresConfig.CacheTTLSeconds; ttl > 0 {
		pgOpts = append(pgOpts, connectors.WithQueryCache(redis, time.Duration(ttl)*time.Second))
	}
	postgres, err := connectors.NewPostgresConnector(&cfg.PostgresConfig, logger, pgOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer postgres.Close()

	// Postgres schemas come from `cartline migrate`; the sqlite dev path has
	// no migration driver, so the server creates its own table.
	if cfg.PostgresConfig.Driver == "sqlite" {
		if err := postgres.DB(context.Background()).AutoMigrate(&internal_callsession.CallSession{}); err != nil {
			return fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}

	opensearch, err := connectors.NewOpenSearchConnector(&cfg.OpenSearchConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect opensearch: %w", err)
	}

	// Create the k-NN indices up front so the first call does not pay for it.
	llm := llm_client.NewChatClient(cfg, logger)
	embedder := internal_agent_embedding.NewEmbedder(cfg, logger, llm)
	retriever := internal_retrieval.NewRetriever(opensearch, embedder, logger)
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := retriever.EnsureIndexes(bootCtx); err != nil {
		return fmt.Errorf("failed to prepare search indices: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	assistant_routers.HealthCheckRoutes(cfg, engine, logger, postgres)
	if err := assistant_routers.TalkApiRoute(cfg, engine, logger, postgres, redis, opensearch); err != nil {
		return fmt.Errorf("failed to mount talk api: %w", err)
	}
	assistant_routers.KnowledgeApiRoute(cfg, engine, logger, redis, opensearch)
	assistant_routers.ConversationApiRoute(cfg, engine, logger, postgres)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server stopped: %v", err)
		}
	}()
	logger.Infof("cartline assistant %s listening on %s", cfg.Version, cfg.Address())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Draining gives in-flight calls a window to finish; active WebSocket
	// streams end when the provider closes the call leg.
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server cleanly: %w", err)
	}
	return nil
}
