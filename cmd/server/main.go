package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	_ "github.com/saleemjadallah/skinsense-backend-sub002/docs"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/auth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/config"
	api "github.com/saleemjadallah/skinsense-backend-sub002/internal/http"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/log"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/metrics"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/repo"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

// @title SkinSense Auth API
// @version 1.0
// @description Identity and account-linking service for the SkinSense app.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	lg, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Prod {
		tracer.Start(tracer.WithService("skinsense-auth"))
		defer tracer.Stop()
	}

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		lg.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureUserIndexes(ctx); err != nil {
		lg.Fatal("mongo indexes", zap.Error(err))
	}

	rds := repo.NewRedis(cfg.RedisAddr)
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		lg.Warn("redis unreachable at startup", zap.Error(err))
	}

	var pub queue.Publisher
	if cfg.RabbitURL != "" {
		pub, err = queue.NewRabbit(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			lg.Fatal("rabbit connect", zap.Error(err))
		}
	} else {
		lg.Warn("RABBIT_URL empty, events disabled")
		pub = queue.NewNoop()
	}
	defer pub.Close()

	tokens := security.NewTokenService(cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		time.Duration(cfg.VerifyTTLHours)*time.Hour,
	)

	svc := &auth.Service{
		Users:    store,
		OTPs:     rds,
		Tokens:   tokens,
		Google:   oauth.NewGoogle(splitCSV(cfg.GoogleClientIDs)),
		Apple:    oauth.NewApple(splitCSV(cfg.AppleClientIDs)),
		Events:   pub,
		Exchange: cfg.EventsExchange,
		Log:      lg,
	}

	h := api.NewHandler(svc, store, rds, tokens, cfg.RateLimitPerMin, cfg.StrictRateLimitMin, lg)
	r := api.NewRouter(h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	lg.Info("auth service listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		lg.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", zap.Error(err))
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
