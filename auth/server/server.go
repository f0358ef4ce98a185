// Package server implements the authentication microservice: a Google OAuth
// login flow gated on the university email domain, with a verify endpoint
// consumed by the bot.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/smuassist/learnmate/auth"
	"github.com/smuassist/learnmate/auth/store"
)

const (
	userinfoEndpoint = "https://www.googleapis.com/oauth2/v1/userinfo"
	// stateTTL bounds how long a login link stays valid.
	stateTTL = 10 * time.Minute
)

// Config holds auth service configuration.
type Config struct {
	Addr               string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string // public URL of /callback
	AllowedDomain      string // e.g. "smu.edu.sg"
	DSN                string
	Mode               string // "dev" enables the test-user endpoint
}

// Server is the authentication HTTP service.
type Server struct {
	echo   *echo.Echo
	oauth  *oauth2.Config
	users  *store.Store
	config Config

	mu     sync.Mutex
	states map[string]pendingState // state token -> telegram id
}

type pendingState struct {
	telegramID string
	createdAt  time.Time
}

// New builds the auth service and opens its user store.
func New(cfg Config) (*Server, error) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, errors.New("google oauth credentials required")
	}
	if cfg.AllowedDomain == "" {
		cfg.AllowedDomain = "smu.edu.sg"
	}

	users, err := store.New(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := users.Migrate(context.Background()); err != nil {
		users.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		users:  users,
		config: cfg,
		states: make(map[string]pendingState),
	}

	e.GET("/", s.handleIndex)
	e.GET("/login/:telegram_id", s.handleLogin)
	e.GET("/callback", s.handleCallback)
	e.GET("/verify/:telegram_id", s.handleVerify)
	e.GET("/healthz", s.handleHealth)
	if cfg.Mode != "prod" {
		e.POST("/dev/users/:telegram_id", s.handleAddTestUser)
	}

	return s, nil
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.String(http.StatusOK, "Authentication Service")
}

// handleLogin binds a fresh state token to the telegram id and redirects to
// Google for consent.
func (s *Server) handleLogin(c echo.Context) error {
	telegramID := c.Param("telegram_id")
	if telegramID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "telegram id required")
	}

	state := uuid.NewString()
	s.mu.Lock()
	s.pruneStatesLocked()
	s.states[state] = pendingState{telegramID: telegramID, createdAt: time.Now()}
	s.mu.Unlock()

	slog.Info("auth: login started", "telegram_id", telegramID)
	return c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

type googleUserinfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleCallback(c echo.Context) error {
	state := c.QueryParam("state")
	code := c.QueryParam("code")

	s.mu.Lock()
	pending, ok := s.states[state]
	if ok {
		delete(s.states, state)
	}
	s.mu.Unlock()

	if !ok || time.Since(pending.createdAt) > stateTTL {
		return c.HTML(http.StatusBadRequest, "<p>Invalid session. Please try again.</p>")
	}

	ctx := c.Request().Context()
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Error("auth: code exchange failed", "error", err)
		return c.HTML(http.StatusBadGateway, "<p>Authentication failed. Please try again.</p>")
	}

	info, err := s.fetchUserinfo(ctx, token)
	if err != nil {
		slog.Error("auth: userinfo fetch failed", "error", err)
		return c.HTML(http.StatusBadGateway, "<p>Authentication failed. Please try again.</p>")
	}

	if !hasDomain(info.Email, s.config.AllowedDomain) {
		slog.Warn("auth: rejected email domain", "telegram_id", pending.telegramID)
		return c.HTML(http.StatusForbidden,
			"<p>Authentication failed. Please use your SMU email address.</p>")
	}

	user := auth.UserInfo{
		Email:           info.Email,
		Name:            info.Name,
		AuthenticatedAt: time.Now().Format(time.RFC3339),
	}
	if err := s.users.Upsert(ctx, pending.telegramID, user); err != nil {
		slog.Error("auth: failed to persist user", "telegram_id", pending.telegramID, "error", err)
		return c.HTML(http.StatusInternalServerError, "<p>Something went wrong. Please try again.</p>")
	}

	slog.Info("auth: user authenticated", "telegram_id", pending.telegramID)
	return c.HTML(http.StatusOK,
		"<p>Authentication successful! You can now use the Telegram bot.</p>")
}

func (s *Server) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*googleUserinfo, error) {
	resp, err := s.oauth.Client(ctx, token).Get(userinfoEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "userinfo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "decode userinfo")
	}
	return &info, nil
}

func (s *Server) handleVerify(c echo.Context) error {
	telegramID := c.Param("telegram_id")
	user, err := s.users.Get(c.Request().Context(), telegramID)
	if err != nil {
		slog.Error("auth: verify lookup failed", "telegram_id", telegramID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(http.StatusOK, auth.VerifyResult{
		Authenticated: user != nil,
		UserInfo:      user,
	})
}

// handleAddTestUser registers a user without the OAuth dance. Dev mode only.
func (s *Server) handleAddTestUser(c echo.Context) error {
	telegramID := c.Param("telegram_id")

	var user auth.UserInfo
	if err := c.Bind(&user); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user data")
	}
	if user.Email == "" {
		user.Email = "test.user@" + s.config.AllowedDomain
	}
	if user.Name == "" {
		user.Name = "Test User"
	}
	user.AuthenticatedAt = time.Now().Format(time.RFC3339)

	if err := s.users.Upsert(c.Request().Context(), telegramID, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store user")
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// pruneStatesLocked drops expired login attempts. Caller holds the lock.
func (s *Server) pruneStatesLocked() {
	for state, pending := range s.states {
		if time.Since(pending.createdAt) > stateTTL {
			delete(s.states, state)
		}
	}
}

func hasDomain(email, domain string) bool {
	return len(email) > len(domain)+1 && email[len(email)-len(domain)-1:] == "@"+domain
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("auth: listening", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("auth server: %w", err)
	}
	return nil
}

// Shutdown stops the service and closes the user store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if cerr := s.users.Close(); err == nil {
		err = cerr
	}
	return err
}
