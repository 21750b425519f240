package browser_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"sportsmed/internal/adapters/email"
	web "sportsmed/internal/adapters/http"
	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/adapters/storage"
	accountStore "sportsmed/internal/adapters/storage/account"
	auditStore "sportsmed/internal/adapters/storage/audit"
	biometricStore "sportsmed/internal/adapters/storage/biometric"
	consentStore "sportsmed/internal/adapters/storage/consent"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *storage.TimedDB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
	Mail    *email.NoopSender
}

// newTestApp creates a fully wired app with a temp SQLite DB and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Connect(ctx, storage.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "browser.db")})
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.MigrateDB(ctx, db, db.Dialect()); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	stores := &web.Stores{
		AccountStore:   accountStore.NewSQLStore(db),
		ConsentStore:   consentStore.NewSQLStore(db),
		BiometricStore: biometricStore.NewSQLStore(db),
		AuditStore:     auditStore.NewSQLStore(db),
	}

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	mail := email.NewNoopSender()
	mux := web.NewMux(stores, web.Options{
		Sessions:    middleware.NewSessionStore(time.Hour),
		EmailSender: mail,
		CSRF: middleware.CSRFOptions{
			Key: []byte("0123456789abcdef0123456789abcdef"),
			TrustedOrigins: []string{
				fmt.Sprintf("127.0.0.1:%d", port),
				fmt.Sprintf("localhost:%d", port),
			},
		},
		DB: db,
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
		Mail:    mail,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// signUp registers an account through the signup form and waits for the redirect.
func (a *testApp) signUp(t *testing.T, page playwright.Page, userType, email, password, wantPath string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/signup"); err != nil {
		t.Fatalf("failed to navigate to signup: %v", err)
	}
	fields := []struct{ selector, value string }{
		{"#firstName", "Jamie"},
		{"#lastName", "Sprinter"},
		{"#email", email},
		{"#password", password},
		{"#confirmPassword", password},
	}
	if err := page.Locator(fmt.Sprintf("input[name=userType][value=%s]", userType)).Check(); err != nil {
		t.Fatalf("failed to pick user type: %v", err)
	}
	for _, f := range fields {
		if err := page.Locator(f.selector).Fill(f.value); err != nil {
			t.Fatalf("failed to fill %s: %v", f.selector, err)
		}
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit signup: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+wantPath, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("signup did not redirect to %s: %v", wantPath, err)
	}
}
