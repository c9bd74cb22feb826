package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexledger/lexledger/internal/ingest"
	"github.com/lexledger/lexledger/internal/ledger"
	"github.com/lexledger/lexledger/internal/simplify"
	"github.com/lexledger/lexledger/internal/tracker/handler"
	"github.com/lexledger/lexledger/internal/tracker/service"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("lexledger exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("lexledger")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.max_body_bytes", 10<<20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("auth.admin_secret", "")
	viper.SetDefault("auth.signing_key", "")
	viper.SetDefault("auth.token_ttl", "1h")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	var store ledger.Store
	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		db, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
		store = ledger.NewPostgresStore(db, logger)
	} else {
		logger.Warn("no database.url configured — using in-memory store; records do not survive restarts")
		store = ledger.NewMemoryStore()
	}

	// ── Ledger ───────────────────────────────────────────────────────────────
	startCtx := context.Background()
	chain, err := ledger.Open(startCtx, store, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	if res, err := chain.Verify(startCtx); err != nil {
		logger.Warn("startup chain verification could not run", zap.Error(err))
	} else if !res.Valid {
		logger.Warn("amendment chain integrity check FAILED",
			zap.Int64("first_bad_seq", res.FirstBadSeq),
			zap.String("defect", string(res.Defect)),
		)
	} else {
		fields := []zap.Field{zap.Int("records", res.Checked)}
		if head, ok := chain.Head(); ok {
			fields = append(fields, zap.String("head", head.Hash))
		}
		logger.Info("amendment chain verified", fields...)
	}

	// ── Wire up layers ────────────────────────────────────────────────────────
	svc := service.NewAmendmentService(chain, simplify.NewRuleBased(), logger)
	pipeline := ingest.NewPipeline(svc, logger)

	signingKey := []byte(viper.GetString("auth.signing_key"))
	if len(signingKey) == 0 {
		// Ephemeral key: issued tokens stop working across restarts.
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn("auth.signing_key not set — using an ephemeral signing key")
	}
	tokenTTL, _ := time.ParseDuration(viper.GetString("auth.token_ttl"))
	authHandler := handler.NewAuthHandler(viper.GetString("auth.admin_secret"), signingKey, tokenTTL, logger)
	requireAdmin := authHandler.RequireAdmin()

	amendmentHandler := handler.NewAmendmentHandler(svc, logger)
	ledgerHandler := handler.NewLedgerHandler(svc, logger)
	ingestHandler := handler.NewIngestHandler(pipeline, logger)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit
	maxBody := viper.GetInt64("server.max_body_bytes")
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	authHandler.Register(v1)
	amendmentHandler.Register(v1, requireAdmin)
	ledgerHandler.Register(v1, requireAdmin)
	ingestHandler.Register(v1, requireAdmin)

	// ── Serve ─────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("lexledger HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down lexledger...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("lexledger stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
