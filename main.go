package main

import (
	"context"
	"io"
	"os"
	"time"

	golibslogger "github.com/GabrielNunesIT/go-libs/logger"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"kitchen-challenge/client"
	"kitchen-challenge/config"
	"kitchen-challenge/kitchen"
	"kitchen-challenge/observability"
	"kitchen-challenge/scheduler"
)

// newRunLogger builds the structured logger for one run: JSON lines
// piped anywhere but a terminal, a human-readable console writer when
// stdout is one, both carrying the run's correlation id on every line.
func newRunLogger(runID string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if isatty.IsTerminal(os.Stdout.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Str("run_id", runID).Logger()
}

func provideConfig() (config.RunConfig, error) {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		return config.RunConfig{}, err
	}
	return config.Load(fs)
}

func provideClock() kitchen.Clock {
	return kitchen.SystemClock{}
}

func provideClient(cfg config.RunConfig) *client.Client {
	return client.New(cfg.Endpoint, cfg.Auth, golibslogger.GetDefaultLogger())
}

func provideScheduler(cfg config.RunConfig, k *kitchen.Kitchen, clock kitchen.Clock) *scheduler.Scheduler {
	return scheduler.New(k, clock, cfg.Rate(), cfg.Min(), cfg.Max())
}

func provideObservability(cfg config.RunConfig, k *kitchen.Kitchen) *observability.Server {
	return observability.New(cfg.ObservabilityAddr, k, observability.NewMetrics())
}

// run fetches a challenge, drives the kitchen through the scheduler, and
// submits the resulting action log for scoring. It's the program's one
// piece of real work, invoked once by fx at startup.
func run(log zerolog.Logger, cfg config.RunConfig, c *client.Client, k *kitchen.Kitchen, s *scheduler.Scheduler, _ *observability.Server) error {
	ctx := context.Background()

	problem, err := c.Challenge(ctx, cfg.Name, cfg.Seed)
	if err != nil {
		log.Error().Err(err).Msg("fetching challenge")
		return err
	}
	log.Info().Int("orders", len(problem.Orders)).Str("test_id", problem.TestID).Msg("running challenge")

	s.Run(ctx, problem.Orders)

	result, err := c.Solve(ctx, problem.TestID, cfg.Rate(), cfg.Min(), cfg.Max(), k.GetActions())
	if err != nil {
		log.Error().Err(err).Msg("submitting solution")
		return err
	}
	log.Info().Str("result", result).Msg("solved")
	return nil
}

func main() {
	log := newRunLogger(uuid.New().String())

	app := fx.New(
		fx.NopLogger,
		fx.Supply(log),
		fx.Provide(
			provideConfig,
			provideClock,
			kitchen.NewKitchen,
			provideClient,
			provideScheduler,
			provideObservability,
		),
		fx.Invoke(observability.Start),
		fx.Invoke(func(lifecycle fx.Lifecycle, log zerolog.Logger, cfg config.RunConfig, c *client.Client, k *kitchen.Kitchen, s *scheduler.Scheduler, obs *observability.Server) {
			lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return run(log, cfg, c, k, s, obs)
				},
			})
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		_ = app.Stop(ctx)
		os.Exit(1)
	}
	if err := app.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
		os.Exit(1)
	}
}
