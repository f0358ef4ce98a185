package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/smuassist/learnmate/auth"
	authserver "github.com/smuassist/learnmate/auth/server"
	"github.com/smuassist/learnmate/bot"
	"github.com/smuassist/learnmate/bot/metrics"
	"github.com/smuassist/learnmate/dialog"
	"github.com/smuassist/learnmate/internal/profile"
	"github.com/smuassist/learnmate/internal/version"
	"github.com/smuassist/learnmate/knowledge"
	kbserver "github.com/smuassist/learnmate/knowledge/server"
	"github.com/smuassist/learnmate/llm"
)

var rootCmd = &cobra.Command{
	Use:   "learnmate",
	Short: "Telegram learning assistant for SMU Master's Program students.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Ignore a missing .env; deployments use real environment variables.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		p := loadProfile()
		if err := p.ValidateBot(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		runBot(p)
	},
}

var authServiceCmd = &cobra.Command{
	Use:   "auth-service",
	Short: "Run the OAuth authentication service.",
	Run: func(_ *cobra.Command, _ []string) {
		p := loadProfile()
		if err := p.ValidateAuthService(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		runAuthService(p)
	},
}

var knowledgeBaseCmd = &cobra.Command{
	Use:   "knowledge-base",
	Short: "Run the knowledge-base search service.",
	Run: func(_ *cobra.Command, _ []string) {
		runKnowledgeBase(loadProfile())
	},
}

func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode: viper.GetString("mode"),
	}
	p.FromEnv()
	p.Version = version.GetCurrentVersion(p.Mode)
	return p
}

func runBot(p *profile.Profile) {
	ctx, cancel := signalContext()
	defer cancel()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authClient := auth.NewClient(p.AuthServiceURL, time.Duration(p.AuthTimeoutSeconds)*time.Second)
	searchClient := knowledge.NewSearchClient(p.KnowledgeBaseURL, time.Duration(p.KnowledgeTimeout)*time.Second)
	gate := knowledge.NewGate(searchClient, p.KnowledgeThreshold)

	var model dialog.ModelClient
	if p.IsModelEnabled() {
		client, err := llm.NewClient(llm.Config{
			APIKey:    p.ModelAPIKey,
			Model:     p.ModelName,
			MaxTokens: p.ModelMaxTokens,
			Timeout:   time.Duration(p.ModelTimeoutSeconds) * time.Second,
		})
		if err != nil {
			slog.Error("failed to create model client", "error", err)
			os.Exit(1)
		}
		model = client
	} else {
		slog.Warn("no model API key configured, complex questions will be declined")
	}

	handler := dialog.NewHandler(dialog.Config{
		Contexts:     dialog.NewContextManager(time.Duration(p.ContextExpirySeconds) * time.Second),
		Auth:         authClient,
		Gate:         gate,
		Model:        model,
		HistoryLimit: p.HistoryLimit,
	})

	b, err := bot.New(bot.Config{
		Token:   p.TelegramBotToken,
		Handler: handler,
		Auth:    authClient,
		Metrics: collector,
	})
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": p.Version})
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error {
		if err := e.Start(p.MetricsAddr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return e.Shutdown(shutdownCtx)
	})

	slog.Info("learnmate bot started", "version", p.Version, "metrics_addr", p.MetricsAddr)
	if err := g.Wait(); err != nil {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

func runAuthService(p *profile.Profile) {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := authserver.New(authserver.Config{
		Addr:               p.AuthAddr,
		GoogleClientID:     p.GoogleClientID,
		GoogleClientSecret: p.GoogleClientSecret,
		RedirectURL:        p.AuthRedirectURL,
		AllowedDomain:      p.AllowedEmailDomain,
		DSN:                p.AuthDSN,
		Mode:               p.Mode,
	})
	if err != nil {
		slog.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("auth service shutdown failed", "error", err)
		}
	}()

	if err := s.Start(); err != nil {
		slog.Error("auth service exited with error", "error", err)
		os.Exit(1)
	}
}

func runKnowledgeBase(p *profile.Profile) {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := kbserver.New(kbserver.Config{
		Addr:      p.KnowledgeAddr,
		DataDir:   p.KnowledgeDataDir,
		Threshold: p.KnowledgeRelevance,
		RateLimit: rate.Limit(p.KnowledgeRateLimit),
	})
	if err != nil {
		slog.Error("failed to create knowledge-base service", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("knowledge-base shutdown failed", "error", err)
		}
	}()

	if err := s.Start(); err != nil {
		slog.Error("knowledge-base exited with error", "error", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	viper.SetDefault("mode", "dev")
	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(authServiceCmd, knowledgeBaseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
