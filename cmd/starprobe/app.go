package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/starprobe"
)

const envKey = "env"

// env is the per-invocation state shared by all commands.
type env struct {
	logger   *starprobe.Logger
	registry *prometheus.Registry
	metrics  *promCollector
	server   *http.Server
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "starprobe",
		Usage:           "nearest-point queries over 3D point catalogs",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "minimum log `LEVEL` (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "log `FORMAT` (text, json)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on `ADDR` while the command runs",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:   "gen",
				Usage:  "generate a random point catalog",
				Action: GenAction,
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "write the catalog to `FILE` (.csv for CSV)",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Value:   100000,
						Usage:   "number of points",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Value: 42,
						Usage: "random seed",
					},
					&cli.IntFlag{
						Name:  "clusters",
						Usage: "number of gaussian clusters (0 for uniform points)",
					},
					&cli.Float64Flag{
						Name:  "extent",
						Value: 100,
						Usage: "points lie within [-extent, extent] per axis",
					},
					&cli.Float64Flag{
						Name:  "spread",
						Value: 2,
						Usage: "standard deviation of each cluster",
					},
					&cli.StringFlag{
						Name:  "compression",
						Value: "zstd",
						Usage: "block compression (none, lz4, zstd)",
					},
				},
			},
			{
				Name:   "probe",
				Usage:  "find the points nearest to a position",
				Action: ProbeAction,
				Flags: []cli.Flag{
					inFlag(),
					&cli.StringFlag{
						Name:     "at",
						Required: true,
						Usage:    "probe position `X,Y,Z`",
					},
					pivotFlag(),
					&cli.IntFlag{
						Name:  "k",
						Value: 1,
						Usage: "number of neighbours; k > 1 searches all octants",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Value: "own",
						Usage: "single-nearest strategy (own, exact)",
					},
					&cli.BoolFlag{
						Name:  "display",
						Usage: "interpret --at in display units ([-0.5, 0.5] per axis)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "print per-octant bucket sizes and tree heights",
				Action: StatsAction,
				Flags: []cli.Flag{
					inFlag(),
					pivotFlag(),
				},
			},
		},
	}
}

func inFlag() cli.Flag {
	return &cli.PathFlag{
		Name:     "in",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "read points from catalog or CSV `FILE`",
	}
}

func pivotFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "pivot",
		Usage: "octant pivot `X,Y,Z` (defaults to the centroid)",
	}
}

func setup(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	e := &env{registry: prometheus.NewRegistry()}
	switch c.String("log-format") {
	case "text":
		e.logger = starprobe.NewLogger(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	case "json":
		e.logger = starprobe.NewLogger(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	default:
		return fmt.Errorf("--log-format: unknown format %q", c.String("log-format"))
	}
	e.metrics = newPromCollector(e.registry)

	if addr := c.String("metrics-addr"); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("--metrics-addr: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
		e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("metrics server failed", "error", err)
			}
		}()
		e.logger.Info("serving metrics", "addr", ln.Addr().String())
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[envKey] = e
	return nil
}

func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok || e.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.server.Shutdown(ctx)
}

func envFrom(c *cli.Context) *env {
	if e, ok := c.App.Metadata[envKey].(*env); ok {
		return e
	}
	return &env{logger: starprobe.NoopLogger(), metrics: newPromCollector(prometheus.NewRegistry())}
}
