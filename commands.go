package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pathviz/animation"
	"pathviz/config"
	gw "pathviz/grid_world"
	"pathviz/server"
	"pathviz/session"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "pathviz",
		Short:         "A BFS and DFS grid traversal visualizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "path to the config file")

	rootCmd.AddCommand(newServeCmd(&configPath), newRunCmd(&configPath))
	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var host, port string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualizer page, its websocket and the api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.NewLogger(os.Stderr))
		},
	}
	serveCmd.Flags().StringVar(&host, "host", "", "the host ip, overriding the config")
	serveCmd.Flags().StringVar(&port, "port", "8080", "the host port, overriding the config")
	return serveCmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sess, err := newSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return server.NewServer(cfg.Addr(), sess, logger).Serve(ctx)
}

// newSession builds the session over the configured grid. A nil delay means the configured one.
func newSession(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	delay *time.Duration,
) (*session.Session, error) {
	g, err := cfg.InitialGrid()
	if err != nil {
		return nil, fmt.Errorf("initial grid: %w", err)
	}

	var stepDelay time.Duration
	if delay != nil {
		stepDelay = *delay
	} else if stepDelay, err = cfg.Delay(); err != nil {
		return nil, err
	}
	// Surface a malformed run deadline now rather than on the first run.
	_, cancel, err := cfg.WithRunDeadline(ctx)
	if err != nil {
		return nil, err
	}
	cancel()

	driver := animation.NewDriver(stepDelay, logger)
	return session.New(ctx, g, driver, logger, session.WithRunContext(cfg.WithRunDeadline)), nil
}

type runOptions struct {
	algorithms []string
	layout     string
	delay      time.Duration
	show       bool
}

func newRunCmd(configPath *string) *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run traversals headless over the configured grid and print their reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if opts.layout != "" {
				cfg.Grid.Preset = opts.layout
				cfg.Grid.Track = nil
			}
			return runHeadless(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}
	runCmd.Flags().StringSliceVar(&opts.algorithms, "algorithm", []string{"bfs", "dfs"}, "the traversals to run, in order")
	runCmd.Flags().StringVar(&opts.layout, "layout", "", "a preset layout (empty, divided, serpentine) replacing the configured grid")
	runCmd.Flags().DurationVar(&opts.delay, "delay", 0, "the pause after each visited cell")
	runCmd.Flags().BoolVar(&opts.show, "show", true, "print the grid after each run")
	return runCmd
}

// runHeadless runs each algorithm in turn over one session, so the final grid carries the
// visited cells of all of them, and writes a report line per run.
func runHeadless(ctx context.Context, w io.Writer, cfg *config.Config, opts runOptions) error {
	logger := cfg.NewLogger(os.Stderr)

	algs := make([]gw.Algorithm, 0, len(opts.algorithms))
	for _, name := range opts.algorithms {
		alg, err := gw.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		algs = append(algs, alg)
	}

	sess, err := newSession(ctx, cfg, logger, &opts.delay)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, alg := range algs {
		report, err := sess.Run(ctx, alg)
		if err != nil {
			return fmt.Errorf("%s run %s: %w", alg, report.RunID, err)
		}
		fmt.Fprintf(w, "%s: %s, visited %d, distance %d, %.2f ms\n",
			alg, report.Outcome, report.Visited, report.Distance,
			float64(report.Elapsed.Microseconds())/1000)
		if opts.show {
			gw.ShowGrid(w, report.Final)
		}
	}
	return nil
}
