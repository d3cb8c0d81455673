/*
Package main is the entry point for the HZ Chat client.

It loads configuration, initializes the global logging system, restores the
saved sign-in, starts the chat session and the local control API, and handles
operating system interrupt signals (SIGINT, SIGTERM) for a graceful shutdown.
*/
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

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"hzchat-client/internal/app/session"
	"hzchat-client/internal/configs"
	"hzchat-client/internal/handler"
	"hzchat-client/internal/pkg/keystore"
	"hzchat-client/internal/pkg/limiter"
	"hzchat-client/internal/pkg/logx"
)

const limiterSweepInterval = time.Minute

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("server_url", cfg.ServerURL).
		Str("socket_path", cfg.SocketPath).
		Dur("request_timeout", cfg.RequestTimeout).
		Int("request_retries", cfg.RequestRetries).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// CHAT_TOKEN wins over the saved sign-in.
	tokens := keystore.Open(cfg.TokenDir)
	token := cfg.Token
	if token == "" {
		token, err = tokens.Load()
		if err != nil && !errors.Is(err, keystore.ErrNoToken) {
			logx.Warn("Could not load saved sign-in. Starting signed out.", "error", err.Error())
		}
	}

	sess, err := session.New(session.Options{
		ServerURL:      cfg.ServerURL,
		SocketPath:     cfg.SocketPath,
		Token:          token,
		RequestTimeout: cfg.RequestTimeout,
		RequestRetries: cfg.RequestRetries,
		SendRate:       cfg.SendRate,
		SendBurst:      cfg.SendBurst,
	})
	if err != nil {
		logx.Fatal(err, "Failed to create chat session")
	}

	apiLimiter := limiter.NewKeyedLimiter(rate.Limit(handler.APIRate), handler.APIBurst)

	router := handler.Router(&handler.AppDeps{
		Session: sess,
		Tokens:  tokens,
		Config:  cfg,
		Limiter: apiLimiter,
	})

	serverAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(gctx)
	})

	g.Go(func() error {
		apiLimiter.Run(gctx, limiterSweepInterval)
		return nil
	})

	g.Go(func() error {
		logx.Info(fmt.Sprintf("HZ Chat control API listening on http://%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logx.Fatal(err, "Client stopped with error")
	}

	logx.Info("Client gracefully stopped.")
}
