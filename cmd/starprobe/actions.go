package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/starprobe"
	"github.com/hupe1980/starprobe/model"
	"github.com/hupe1980/starprobe/octant"
	"github.com/hupe1980/starprobe/pointio"
	"github.com/hupe1980/starprobe/testutil"
)

// GenAction writes a random point catalog.
func GenAction(c *cli.Context) error {
	compression, err := pointio.ParseCompression(c.String("compression"))
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count < 0 {
		return fmt.Errorf("--count must not be negative, got %d", count)
	}

	rng := testutil.NewRNG(c.Int64("seed"))
	extent := float32(c.Float64("extent"))

	var ps model.PointSet
	if clusters := c.Int("clusters"); clusters > 0 {
		ps = rng.ClusteredPoints(count, clusters, extent, float32(c.Float64("spread")))
	} else {
		ps = rng.UniformPoints(count, -extent, extent)
	}

	path := c.Path("out")
	if err := pointio.WriteFile(path, ps, compression); err != nil {
		return err
	}
	envFrom(c).logger.Info("catalog written", "path", path, "points", ps.Len(), "compression", compression.String())

	t := table.NewWriter()
	t.AppendHeader(table.Row{"File", "Points", "Compression"})
	t.AppendRow(table.Row{path, ps.Len(), compression.String()})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// ProbeAction builds an index over a catalog and queries it once.
func ProbeAction(c *cli.Context) error {
	target, err := parseVector(c.String("at"))
	if err != nil {
		return fmt.Errorf("--at: %w", err)
	}
	strategy, err := octant.ParseStrategy(c.String("strategy"))
	if err != nil {
		return fmt.Errorf("--strategy: %w", err)
	}
	k := c.Int("k")

	ctrl, ps, err := buildController(c, starprobe.WithStrategy(strategy))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	mapping, _ := ctrl.Mapping()
	native := model.FromVector(target)
	if c.Bool("display") {
		native = mapping.ToNative(target)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "Point", "Distance²", "Position", "Display"})

	if k != 1 {
		results, err := ctrl.FindKNearest(native, k)
		if err != nil {
			return err
		}
		for rank, r := range results {
			p := ps.At(int(r.PointIndex))
			t.AppendRow(table.Row{rank + 1, r.PointIndex, r.DistanceSquared, p.String(), formatVector(mapping.ToDisplay(p))})
		}
	} else {
		ch, ok := ctrl.Probe(c.Context, native)
		if !ok {
			return errors.New("probe was dropped")
		}
		pr := <-ch
		if pr.Found() {
			t.AppendRow(table.Row{1, pr.Result.PointIndex, pr.Result.DistanceSquared, pr.Native.String(), formatVector(pr.Display)})
		}
	}

	t.AppendFooter(table.Row{"", "", "", "query " + native.String(), strategy.String()})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// StatsAction prints the shape of the index built over a catalog.
func StatsAction(c *cli.Context) error {
	ctrl, _, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	stats, ok := ctrl.Stats()
	if !ok {
		return errors.New("index not ready")
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Octant", "Side", "Points", "Share", "Height"})
	for o := range octant.ID(octant.Count) {
		share := 0.0
		if stats.Points > 0 {
			share = float64(stats.BucketSizes[o]) / float64(stats.Points)
		}
		t.AppendRow(table.Row{int(o), o.String(), stats.BucketSizes[o], fmt.Sprintf("%.1f%%", 100*share), stats.TreeHeights[o]})
	}
	t.AppendFooter(table.Row{"", "pivot " + stats.Pivot.String(), stats.Points, fmt.Sprintf("%d bytes", stats.MemoryBytes), ""})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// buildController loads --in, initializes a controller with --pivot and waits
// for the build.
func buildController(c *cli.Context, extra ...starprobe.Option) (*starprobe.Controller, model.PointSet, error) {
	ps, err := pointio.ReadFile(c.Path("in"))
	if err != nil {
		return nil, model.PointSet{}, err
	}

	pivot := ps.Centroid()
	if s := c.String("pivot"); s != "" {
		v, err := parseVector(s)
		if err != nil {
			return nil, model.PointSet{}, fmt.Errorf("--pivot: %w", err)
		}
		pivot = model.FromVector(v)
	}

	e := envFrom(c)
	opts := append([]starprobe.Option{
		starprobe.WithLogger(e.logger),
		starprobe.WithMetricsCollector(e.metrics),
	}, extra...)

	ctrl := starprobe.New(opts...)
	if err := ctrl.Initialize(ps, pivot); err != nil {
		ctrl.Close()
		return nil, model.PointSet{}, err
	}
	if err := ctrl.WaitReady(c.Context); err != nil {
		ctrl.Close()
		return nil, model.PointSet{}, err
	}
	return ctrl, ps, nil
}

// parseVector parses "x,y,z".
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, err
		}
		v[i] = f
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", v.X, v.Y, v.Z)
}
