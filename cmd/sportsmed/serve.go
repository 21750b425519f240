package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sportsmed/internal/adapters/email"
	web "sportsmed/internal/adapters/http"
	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/adapters/http/perf"
	"sportsmed/internal/adapters/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr, baseURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the SportsMed Pro web server. The schema is migrated on start-up.
SIGINT or SIGTERM drains in-flight requests before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(cmd, baseURL)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public URL used in e-mail links")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, baseURL string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := perf.NewCollector(perf.DefaultRingSize)
	db, err := a.openDB(ctx, collector)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
		return err
	}

	csrfKey, err := a.cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}
	tokens, err := middleware.NewTokenIssuer(a.cfg.JWTSecretBytes(), a.cfg.Security.TokenTTL)
	if err != nil {
		return err
	}
	middleware.SecureCookies = a.cfg.IsProduction()

	handler := web.NewMux(newStores(db), web.Options{
		Collector:   collector,
		Sessions:    middleware.NewSessionStore(middleware.DefaultSessionTTL),
		Tokens:      tokens,
		EmailSender: a.emailSender(),
		CSRF: middleware.CSRFOptions{
			Key:            csrfKey,
			TrustedOrigins: a.cfg.Security.TrustedOrigins,
			Secure:         a.cfg.IsProduction(),
		},
		RateLimit:     a.cfg.Security.RateLimit,
		SlowRequestMs: a.cfg.SlowRequestMs,
		BaseURL:       baseURL,
		DB:            db,
	})
	web.StartSweeper(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "SportsMed Pro %s listening on %s", version, a.cfg.Addr)
	color.New(color.Faint).Fprintf(cmd.OutOrStdout(), " (env=%s, db=%s, schema=%d)\n", a.cfg.Env, db.Dialect(), storage.LatestSchemaVersion())
	slog.Info("server_event", "event", "started", "addr", a.cfg.Addr, "env", a.cfg.Env)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server_event", "event", "stopped")
	return nil
}

// emailSender picks Resend when a key is configured, otherwise a sender that only logs.
func (a *app) emailSender() email.Sender {
	if a.cfg.Email.ResendKey != "" {
		slog.Info("email_event", "event", "sender_configured", "provider", "resend")
		return email.NewResendSender(a.cfg.Email.ResendKey, a.cfg.Email.From, a.cfg.Email.ReplyTo)
	}
	if a.cfg.IsProduction() {
		slog.Warn("email_event", "event", "sender_disabled", "reason", "SPORTSMED_RESEND_KEY is not set")
	}
	return email.NewNoopSender()
}
