package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	callflow "github.com/koscakluka/receptionist/core"
	"github.com/koscakluka/receptionist/core/llms/groq"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/speechtotext/deepgram"
	"github.com/koscakluka/receptionist/core/telephony/telnyx"
	"github.com/koscakluka/receptionist/core/tenants/postgres"
	"github.com/koscakluka/receptionist/core/texttospeech/elevenlabs"
	"github.com/koscakluka/receptionist/internal/api"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	cfg, err := configFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	transcriber, err := deepgram.NewTranscriptionClient(cfg.DeepgramAPIKey)
	if err != nil {
		return err
	}
	generator, err := groq.NewClient(cfg.GroqAPIKey)
	if err != nil {
		return err
	}
	control, err := telnyx.NewCallControlClient(cfg.TelnyxAPIKey)
	if err != nil {
		return err
	}

	engine := callflow.NewEngine(store, transcriber, generator)

	routerOpts := []callflow.RouterOption{}
	if cfg.ElevenLabsAPIKey != "" {
		synthesizer, err := elevenlabs.NewTextToSpeechClient(cfg.ElevenLabsAPIKey)
		if err != nil {
			return err
		}
		routerOpts = append(routerOpts, callflow.WithSynthesizer(synthesizer))
	}
	if cfg.GeneratedGreetings {
		routerOpts = append(routerOpts, callflow.WithGeneratedGreetings(generator))
	}

	router := callflow.NewRouter(store, engine, control, postgres.NewResolver(pool), routerOpts...)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(&api.Handler{Router: router}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("AI receptionist listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newSessionStore(cfg *config) (sessions.Store, error) {
	if cfg.RedisURL == "" {
		return sessions.NewStore(sessions.StoreTypeMemory,
			sessions.WithIdleTimeout(cfg.SessionIdleTimeout))
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return sessions.NewStore(sessions.StoreTypeRedis,
		sessions.WithRedisClient(redis.NewClient(opts)),
		sessions.WithIdleTimeout(cfg.SessionIdleTimeout))
}
