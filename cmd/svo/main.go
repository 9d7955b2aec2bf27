// Command svo builds sparse voxel octrees from density fields, writes them
// in their compact binary form and traces rays through them.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig     = "config"
	flagLogLevel   = "log-level"
	flagLogFile    = "log-file"
	flagField      = "field"
	flagMaxLevel   = "max-level"
	flagAttributes = "attributes"
	flagOut        = "out"
	flagOrigin     = "origin"
	flagDirection  = "direction"
	flagOrder      = "order"
	flagMode       = "mode"
	flagRandom     = "random"
	flagSeed       = "seed"
	flagWorkers    = "workers"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "svo:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "svo",
		Usage: "build and trace sparse voxel octrees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also log to a rotated file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "sample a density field and write the compacted octree",
				Description: `
Samples the configured density field over the root cube, keeps the voxels on
the surface shell and writes the child descriptor array (and attachments when
attributes are enabled) to the output file.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagField,
						Usage: "density field name",
					},
					&cli.IntFlag{
						Name:  flagMaxLevel,
						Usage: "depth of the leaves, the root is level 1",
					},
					&cli.BoolFlag{
						Name:  flagAttributes,
						Usage: "compute normals and colors",
					},
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Value:   "out.svo",
						Usage:   "output file",
					},
				},
				Action: buildAction,
			},
			{
				Name:      "trace",
				Usage:     "trace rays through a compacted octree",
				ArgsUsage: "file.svo",
				Flags: []cli.Flag{
					&cli.Float64SliceFlag{
						Name:  flagOrigin,
						Usage: "ray origin x,y,z",
					},
					&cli.Float64SliceFlag{
						Name:  flagDirection,
						Usage: "ray direction x,y,z",
					},
					&cli.StringFlag{
						Name:  flagOrder,
						Usage: "front-to-back or unordered",
					},
					&cli.StringFlag{
						Name:  flagMode,
						Usage: "compact traces the descriptor array, naive expands it to a tree first",
					},
					&cli.IntFlag{
						Name:  flagRandom,
						Usage: "trace this many random rays aimed at the root cube instead",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Value: 1,
						Usage: "seed of the random rays",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Usage: "concurrent tracers, 0 uses all CPUs",
					},
				},
				Action: traceAction,
			},
			{
				Name:      "info",
				Usage:     "print a summary of a compacted octree",
				ArgsUsage: "file.svo",
				Action:    infoAction,
			},
		},
	}
}
