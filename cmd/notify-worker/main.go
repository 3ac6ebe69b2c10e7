package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/config"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/log"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/mail"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
)

func main() {
	cfg := config.Load()

	lg, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	sender, err := buildSender(cfg, lg)
	if err != nil {
		lg.Fatal("mail sender init", zap.String("driver", cfg.EmailDriver), zap.Error(err))
	}

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.EventsExchange, cfg.NotifyQueue,
		[]string{queue.KeyOTPRequested, queue.KeyWelcome})
	if err != nil {
		lg.Fatal("rabbit consumer init", zap.Error(err))
	}
	defer cons.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("notify worker up",
		zap.String("exchange", cfg.EventsExchange),
		zap.String("queue", cfg.NotifyQueue),
		zap.String("driver", cfg.EmailDriver),
		zap.Int("workers", cfg.NotifyWorkers))

	err = cons.Consume(ctx, cfg.NotifyWorkers, func(key string, body []byte) error {
		switch key {
		case queue.KeyOTPRequested:
			var ev queue.OTPRequested
			if err := json.Unmarshal(body, &ev); err != nil {
				lg.Warn("bad otp event, dropping", zap.Error(err))
				return nil
			}
			return sender.SendOTP(ctx, ev.Email, ev.Username, ev.Code, ev.Purpose)
		case queue.KeyWelcome:
			var ev queue.WelcomeRequested
			if err := json.Unmarshal(body, &ev); err != nil {
				lg.Warn("bad welcome event, dropping", zap.Error(err))
				return nil
			}
			return sender.SendWelcome(ctx, ev.Email, ev.Username)
		default:
			lg.Warn("unexpected routing key, dropping", zap.String("key", key))
			return nil
		}
	})
	if err != nil {
		lg.Fatal("consumer stopped", zap.Error(err))
	}
}

func buildSender(cfg config.Config, lg *zap.Logger) (mail.Sender, error) {
	switch cfg.EmailDriver {
	case "smtp":
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			TLS:      cfg.SMTPTLS,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	case "resend":
		return mail.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	default:
		return mail.NoopSender{Log: lg}, nil
	}
}
