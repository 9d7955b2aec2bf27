package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/soypat/svo"
	"github.com/soypat/svo/internal/config"
	"github.com/soypat/svo/internal/logger"
	"github.com/soypat/svo/sampler"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// loadConfig merges defaults, the config file and command line flags in
// increasing priority.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagLogLevel) {
		cfg.Logging.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogFile) {
		cfg.Logging.LogFile = c.String(flagLogFile)
	}
	if c.IsSet(flagField) {
		cfg.Field.Name = c.String(flagField)
		cfg.Field.Params = nil
	}
	if c.IsSet(flagMaxLevel) {
		cfg.Build.MaxLevel = c.Int(flagMaxLevel)
	}
	if c.IsSet(flagAttributes) {
		cfg.Build.Attributes = c.Bool(flagAttributes)
	}
	if c.IsSet(flagMode) {
		cfg.Build.Mode = c.String(flagMode)
	}
	if c.IsSet(flagOrder) {
		cfg.Trace.Order = c.String(flagOrder)
	}
	if c.IsSet(flagWorkers) {
		cfg.Trace.Workers = c.Int(flagWorkers)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func buildConfig(cfg *config.Config, log *zap.Logger) svo.BuildConfig {
	o := cfg.Build.Origin
	return svo.BuildConfig{
		MaxLevel:   cfg.Build.MaxLevel,
		Origin:     r3.Vec{X: o[0], Y: o[1], Z: o[2]},
		Size:       cfg.Build.Size,
		Attributes: cfg.Build.Attributes,
		Logger:     log,
	}
}

func parseOrder(s string) (svo.Order, error) {
	switch s {
	case "front-to-back":
		return svo.FrontToBack, nil
	case "unordered":
		return svo.Unordered, nil
	}
	return 0, errors.Errorf("unknown trace order %q", s)
}

func buildAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	field, err := sampler.FromConfig(cfg.Field.Name, cfg.Field.Params)
	if err != nil {
		return err
	}
	octree, err := svo.New(field, buildConfig(cfg, log), svo.ModeCompact)
	if err != nil {
		return err
	}
	compact := octree.Compact()
	if compact.Empty() {
		log.Warn("field has no surface inside the root cube", zap.String("field", cfg.Field.Name))
	}
	out := c.String(flagOut)
	if err := compact.WriteFile(out); err != nil {
		return err
	}
	stats, err := compact.Stats()
	if err != nil {
		return err
	}
	log.Info("octree written",
		zap.String("file", out),
		zap.String("field", cfg.Field.Name),
		zap.Int("maxLevel", cfg.Build.MaxLevel),
		zap.Int("descriptors", stats.Descriptors),
		zap.Int("leaves", stats.Leaves),
		zap.Int("bytes", stats.Bytes),
	)
	return nil
}

func traceAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	if c.NArg() != 1 {
		return errors.New("missing octree file argument")
	}
	compact, err := svo.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	order, err := parseOrder(cfg.Trace.Order)
	if err != nil {
		return err
	}
	tracer, err := newTracer(compact, cfg.Build.Mode, order)
	if err != nil {
		return err
	}

	var rays []svo.Ray
	if n := c.Int(flagRandom); n > 0 {
		rays = randomRays(rand.New(rand.NewSource(c.Int64(flagSeed))), compact.RootVoxel(), n)
	} else {
		origin, err := vecFlag(c, flagOrigin)
		if err != nil {
			return err
		}
		dir, err := vecFlag(c, flagDirection)
		if err != nil {
			return err
		}
		rays = []svo.Ray{{Origin: origin, Direction: dir}}
	}

	results, err := svo.TraceRays(context.Background(), tracer, rays, cfg.Trace.Workers)
	if err != nil {
		return err
	}
	total := 0
	for i, hits := range results {
		total += len(hits)
		if len(rays) == 1 {
			printHits(c.App.Writer, hits)
		} else {
			log.Debug("ray traced", zap.Int("ray", i), zap.Int("hits", len(hits)))
		}
	}
	log.Info("rays traced",
		zap.Int("rays", len(rays)),
		zap.Int("hits", total),
		zap.Stringer("order", order),
	)
	return nil
}

// newTracer traces compact directly or, in naive mode, the tree expanded from it.
func newTracer(compact *svo.Compact, modeName string, order svo.Order) (svo.Tracer, error) {
	mode, err := svo.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	if mode == svo.ModeNaive {
		tree, err := svo.Expand(compact)
		if err != nil {
			return nil, err
		}
		return svo.NewTreeTracer(tree, order), nil
	}
	return svo.NewCompactTracer(compact, order)
}

func infoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("missing octree file argument")
	}
	compact, err := svo.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	stats, err := compact.Stats()
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "origin:      (%g, %g, %g)\n", compact.Origin.X, compact.Origin.Y, compact.Origin.Z)
	fmt.Fprintf(w, "size:        %g\n", compact.Size)
	fmt.Fprintf(w, "max level:   %d\n", compact.MaxLevel)
	fmt.Fprintf(w, "attributed:  %t\n", compact.Attributed())
	fmt.Fprintf(w, "descriptors: %d\n", stats.Descriptors)
	fmt.Fprintf(w, "leaves:      %d\n", stats.Leaves)
	fmt.Fprintf(w, "bytes:       %d\n", stats.Bytes)
	if !compact.Empty() && !compact.RootLeaf {
		fmt.Fprintf(w, "root:        %v\n", compact.Descriptors[0])
	}
	return nil
}

func vecFlag(c *cli.Context, name string) (r3.Vec, error) {
	v := c.Float64Slice(name)
	if len(v) != 3 {
		return r3.Vec{}, errors.Errorf("--%s needs 3 comma separated values, got %d", name, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// randomRays returns n rays starting on a sphere around root and aimed at
// random points inside it.
func randomRays(rng *rand.Rand, root svo.Voxel, n int) []svo.Ray {
	center := root.Center()
	point := func(scale float64) r3.Vec {
		p := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		return r3.Add(center, r3.Scale(scale/r3.Norm(p), p))
	}
	rays := make([]svo.Ray, n)
	for i := range rays {
		origin := point(root.Size * 1.5)
		target := point(root.Size * 0.5 * rng.Float64())
		rays[i] = svo.Ray{Origin: origin, Direction: r3.Sub(target, origin)}
	}
	return rays
}

func printHits(w io.Writer, hits []svo.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no hits")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "t=%.4f position=(%.4f, %.4f, %.4f) size=%g level=%d",
			h.T, h.Position.X, h.Position.Y, h.Position.Z, h.Size, h.Level)
		if h.Attributed {
			fmt.Fprintf(w, " color=%s normal=(%.3f, %.3f, %.3f)", h.Color.Hex(), h.Normal.X, h.Normal.Y, h.Normal.Z)
		}
		fmt.Fprintln(w)
	}
}
