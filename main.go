package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

type app struct {
	cfg     Config
	log     zerolog.Logger
	metrics *Metrics
	store   SnapshotStore
	dash    *Dashboard
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := buildLogger(cfg.LogLevel, cfg.LogConsole, os.Stderr)
	m := NewMetrics(version)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	api := NewRobotEvents(cfg, m)
	return &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		store:   store,
		dash:    NewDashboard(cfg, api, store, m, log),
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("store close")
		}
	}
}

func main() {
	root := &cobra.Command{
		Use:           "division-stats",
		Short:         "Per-team alliance score stats for RobotEvents divisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), eventsCmd(), divisionsCmd(), tableCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			return serve(ctx, a)
		}),
	}
}

func serve(ctx context.Context, a *app) error {
	s := &server{dash: a.dash, metrics: a.metrics, log: a.log, threshold: a.cfg.DefaultThreshold}
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newRouter(s),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Int("team", a.cfg.TeamID).Str("store", a.cfg.Store).Str("version", version).Msg("dashboard listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the team's events in the active season",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			events, err := a.dash.LoadEvents(ctx)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%d\t%s\n", ev.ID, eventLabel(ev))
			}
			return nil
		}),
	}
}

func divisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "divisions <event-id>",
		Short: "List an event's divisions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			eventID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("event id %q: %w", args[0], err)
			}
			divs, err := a.dash.LoadDivisions(ctx, eventID)
			if err != nil {
				return err
			}
			for _, d := range divs {
				fmt.Printf("%d\t%s\n", d.ID, d.Name)
			}
			return nil
		}),
	}
}

func tableCmd() *cobra.Command {
	var (
		threshold float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "table <event-id> [division-id]",
		Short: "Print the sorted team table for a division (first division by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			eventID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("event id %q: %w", args[0], err)
			}
			divisionID := 0
			if len(args) == 2 {
				if divisionID, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("division id %q: %w", args[1], err)
				}
			} else {
				divs, err := a.dash.LoadDivisions(ctx, eventID)
				if err != nil {
					return err
				}
				if len(divs) == 0 {
					return fmt.Errorf("event %d has no divisions", eventID)
				}
				divisionID = divs[0].ID
			}

			stats, err := a.dash.LoadTeams(ctx, eventID, divisionID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tableRows(stats, threshold))
			}
			return writeTerminalTable(os.Stdout, stats, threshold)
		}),
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Subtract this from every team's mean")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}
