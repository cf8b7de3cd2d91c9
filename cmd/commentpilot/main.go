package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/commentpilot/internal/clipboard"
	"github.com/commentpilot/internal/config"
	"github.com/commentpilot/internal/dispatch"
	"github.com/commentpilot/internal/generate"
	"github.com/commentpilot/internal/logging"
	"github.com/commentpilot/internal/page"
	"github.com/commentpilot/internal/remote"
	"github.com/commentpilot/internal/retry"
	"github.com/commentpilot/internal/ui"
)

const version = "1.0.0"

func main() {
	// .env files are optional; missing ones are fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "commentpilot",
		Usage:   "AI comment assistant for the social feed",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to configuration file",
				EnvVars: []string{"COMMENTPILOT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "override the configured log level",
				EnvVars: []string{"COMMENTPILOT_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: "./commentpilot.toml",
						Usage: "where to write the sample configuration",
					},
				},
				Action: runInit,
			},
			{
				Name:   "serve",
				Usage:  "run the background dispatcher with its HTTP surface",
				Action: runServe,
			},
			{
				Name:  "run",
				Usage: "run one generate-review-post cycle against the selected post",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hint",
						Usage: "guidance embedded in the prompt",
					},
					&cli.StringFlag{
						Name:  "tone",
						Usage: "professional, friendly, supportive, inquisitive, cheerful or funny",
					},
					&cli.BoolFlag{
						Name:  "post",
						Usage: "submit the comment through the page agent",
					},
					&cli.BoolFlag{
						Name:  "copy",
						Usage: "copy the comment to the clipboard",
					},
				},
				Action: runCycle,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInit(c *cli.Context) error {
	path := c.String("path")
	if err := config.InitConfig(path); err != nil {
		return err
	}
	fmt.Printf("Wrote sample configuration to %s\n", path)
	return nil
}

// loadEnvironment loads config and builds the process logger.
func loadEnvironment(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, zerolog.Nop(), err
	}

	level := cfg.General.LogLevel
	if override := c.String("log-level"); override != "" {
		level = override
	}
	log := logging.New(level, os.Stderr)
	return cfg, log, nil
}

// buildRouter assembles the dispatcher-side pipeline from configuration.
func buildRouter(cfg *config.Config, log zerolog.Logger) *dispatch.Router {
	backoff := retry.RemoteCallConfig()
	backoff.BaseDelay = time.Duration(cfg.Remote.BaseDelayMs) * time.Millisecond

	caller := remote.NewCaller(remote.Options{
		Endpoint: cfg.Remote.Endpoint,
		ModelKey: cfg.Remote.ModelKey,
		Backoff:  backoff,
		Sink:     logging.NewEventSink(log),
		Logger:   log,
	})

	handler := generate.NewHandlerWithBudget(
		caller,
		cfg.Remote.MaxRetries,
		time.Duration(cfg.Remote.AttemptTimeoutMs)*time.Millisecond,
		log,
	)

	info := dispatch.Info{Name: "commentpilot", Version: version}
	return dispatch.NewRouter(handler, clipboard.NewSystem(), info, cfg.Dispatcher.GenerationsPerMinute, log)
}

func runServe(c *cli.Context) error {
	cfg, log, err := loadEnvironment(c)
	if err != nil {
		return err
	}

	router := buildRouter(cfg, log)

	e := echo.New()
	e.HideBanner = true
	dispatch.RegisterHandlers(e, router)

	go func() {
		log.Info().Str("listen", cfg.Dispatcher.Listen).Msg("Dispatcher listening")
		if err := e.Start(cfg.Dispatcher.Listen); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Dispatcher server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func runCycle(c *cli.Context) error {
	cfg, log, err := loadEnvironment(c)
	if err != nil {
		return err
	}

	if cfg.Agent.BaseURL == "" {
		return fmt.Errorf("agent base_url is required for run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := buildRouter(cfg, log)
	inbox := make(chan dispatch.Message)
	go router.Serve(ctx, inbox)

	agent := page.NewHTTPAgent(cfg.Agent.BaseURL, nil, log)
	clip := clipboard.NewSystem()
	coordinator := ui.NewCoordinator(agent, inbox, clip, log)

	coordinator.SetHint(c.String("hint"))
	tone := c.String("tone")
	if tone == "" {
		tone = cfg.General.DefaultTone
	}
	coordinator.SetTone(generate.ParseTone(tone))

	// Detection auto-generates the first comment.
	if err := coordinator.DetectPost(ctx); err != nil {
		return err
	}

	fmt.Println(coordinator.StagedComment())

	if c.Bool("copy") {
		if err := coordinator.Copy(); err != nil {
			return err
		}
		log.Info().Msg("Comment copied to clipboard")
	}

	if c.Bool("post") {
		if err := coordinator.PostComment(ctx); err != nil {
			return err
		}
		log.Info().Msg("Comment posted")
	}

	return nil
}
