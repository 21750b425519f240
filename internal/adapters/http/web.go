package web

import (
	"context"
	"net/http"
	"time"

	"sportsmed/internal/adapters/content"
	"sportsmed/internal/adapters/email"
	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/adapters/http/perf"
	accountStore "sportsmed/internal/adapters/storage/account"
	auditStore "sportsmed/internal/adapters/storage/audit"
	biometricStore "sportsmed/internal/adapters/storage/biometric"
	consentStore "sportsmed/internal/adapters/storage/consent"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore   accountStore.Store
	ConsentStore   consentStore.Store
	BiometricStore biometricStore.Store
	AuditStore     auditStore.Store
}

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures NewMux.
type Options struct {
	Collector     *perf.Collector
	Sessions      *middleware.SessionStore
	Tokens        *middleware.TokenIssuer
	EmailSender   email.Sender
	CSRF          middleware.CSRFOptions
	RateLimit     int // requests per second per IP
	SlowRequestMs int
	BaseURL       string // absolute URL used in e-mails
	DB            Pinger
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store and API token issuer
var (
	sessions *middleware.SessionStore
	tokens   *middleware.TokenIssuer
)

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender, never nil after NewMux
var emailSender email.Sender = email.NewNoopSender()

// site holds the embedded page copy.
var site = content.MustLoad()

var (
	baseURL  = "http://localhost:8080"
	dbPinger Pinger
)

// limiter is kept for the sweeper started by StartSweeper.
var limiter *middleware.RateLimiter

// NewMux wires HTTP handlers and middleware for the app.
// PRE: s holds every store; opts.CSRF.Key is 32 bytes
// POST: Returns the fully wrapped handler
func NewMux(s *Stores, opts Options) http.Handler {
	stores = s
	perfCollector = opts.Collector
	sessions = opts.Sessions
	if sessions == nil {
		sessions = middleware.NewSessionStore(middleware.DefaultSessionTTL)
	}
	tokens = opts.Tokens
	if opts.EmailSender != nil {
		emailSender = opts.EmailSender
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	dbPinger = opts.DB

	mux := http.NewServeMux()
	registerRoutes(mux)

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter = middleware.NewRateLimiter(rate, time.Second)

	// Innermost first: SecurityHeaders -> CSRF -> Auth -> RateLimit -> Timing
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRF),
		middleware.Auth(sessions, tokens),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.SlowRequestMs),
	)
}

// StartSweeper drops idle rate-limit buckets every minute until ctx is done.
func StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if limiter != nil {
					limiter.Sweep(5 * time.Minute)
				}
			}
		}
	}()
}
