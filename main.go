// RhythmPath - Plans bouncing-ball trajectories that hit a wall on every note
// Copyright (C) 2025 RhythmPath contributors
//
// This program is free software: you can redistribute it and/or modify it under the terms
// of the GNU General Public License as published by the Free Software Foundation,
// either version 3 of the License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along with this program.
// If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rhythmpath/geom"
)

var (
	version = "1.0.0"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "rhythmpath",
		Short: "Plan a bouncing-ball trajectory that hits a wall on every note",
		Long: `RhythmPath turns a timed note sequence into a ball trajectory: the ball travels
diagonally at constant speed and bounces off a wall exactly at every note onset,
and no leg or wall ever runs through earlier geometry.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			logger := log.NewWithOptions(os.Stderr, log.Options{
				Prefix:          "rhythmpath",
				ReportTimestamp: verbose,
				Level:           level,
			})
			cmd.SetContext(log.WithContext(cmd.Context(), logger))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log planner decisions")

	// Add subcommands
	rootCmd.AddCommand(createPlanCmd())
	rootCmd.AddCommand(createRenderCmd())
	rootCmd.AddCommand(createBatchCmd())
	rootCmd.AddCommand(createListPresetsCmd())
	rootCmd.AddCommand(createPreviewCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addInputFlags registers the flags shared by every planning command.
func addInputFlags(cmd *cobra.Command, opts *planOptions) {
	cmd.Flags().StringVarP(&opts.inputFile, "input", "i", "", "Notes file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&opts.preset, "preset", "p", "", "Planner preset (see list-presets)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "YAML file overriding preset fields")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed for the axis tie-break")
	cmd.Flags().StringVar(&opts.replay, "replay", "", "Reproduce a stored plan file instead of searching")
	cmd.Flags().IntVar(&opts.replayIdx, "solution", 0, "Solution index to replay")
	cmd.Flags().Float64Var(&opts.startX, "start-x", 0, "Start position x")
	cmd.Flags().Float64Var(&opts.startY, "start-y", 0, "Start position y")
}

func createPlanCmd() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan trajectories for a note sequence",
		Long: `Search for trajectories that bounce on every note of the input sequence and
write them, with the config that produced them, to a JSON or YAML plan file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return planSequence(cmd.Context(), opts)
		},
	}

	addInputFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "plan.json", "Output plan file (.json, .yaml or .yml)")
	cmd.Flags().IntVarP(&opts.solutions, "solutions", "n", 1, "Number of distinct trajectories to find")

	return cmd
}

func createRenderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a trajectory to PNG",
		Long: `Draw the walls, corridors and ball of a trajectory at a given time, or export
a whole PNG frame sequence with --frames.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderPlan(cmd.Context(), opts)
		},
	}

	addInputFlags(cmd, &opts.planOptions)
	cmd.Flags().StringVarP(&opts.outputImage, "output", "o", "frame.png", "Output image for a single frame")
	cmd.Flags().Float64VarP(&opts.time, "time", "t", 0, "Time of the single frame in seconds")
	cmd.Flags().StringVar(&opts.skinFile, "skin", "", "Image drawn as the ball")
	cmd.Flags().StringVar(&opts.frameDir, "frames", "", "Export every frame into this directory")
	cmd.Flags().Float64Var(&opts.fps, "fps", 30, "Frames per second for --frames")
	cmd.Flags().IntVar(&opts.width, "width", 1280, "Frame width")
	cmd.Flags().IntVar(&opts.height, "height", 720, "Frame height")
	cmd.Flags().BoolVarP(&opts.parallel, "parallel", "j", true, "Use multi-threaded frame export (default: true)")

	return cmd
}

func createBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Plan many seeds concurrently",
		Long: `Plan the same note sequence with consecutive seeds on a worker pool, report
which seeds solve, and optionally save the most compact trajectory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return batchPlan(cmd.Context(), opts)
		},
	}

	addInputFlags(cmd, &opts.planOptions)
	cmd.Flags().IntVar(&opts.seeds, "seeds", 8, "Number of seeds to try")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Worker goroutines (0 = one per CPU)")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Save the most compact trajectory here")

	return cmd
}

func createListPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-presets",
		Short: "List available planner presets",
		Long:  "List all available planner presets with their derived geometry",
		Run: func(cmd *cobra.Command, args []string) {
			listPresets()
		},
	}
}

func createPreviewCmd() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the interactive preview window",
		Long:  "Launch a window that plays the trajectory and re-plans on demand with other presets or seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := loadNotes(opts.inputFile)
			if err != nil {
				return fmt.Errorf("failed to load notes: %w", err)
			}
			if _, exists := GetPresetByName(opts.preset); opts.preset != "" && !exists {
				return fmt.Errorf("preset '%s' not found (use 'rhythmpath list-presets' to see available presets)", opts.preset)
			}
			NewPreviewGUI(cmd.Context(), notes, opts.preset, opts.seed).Run(geom.V(opts.startX, opts.startY))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.inputFile, "input", "i", "", "Notes file (required)")
	cmd.Flags().StringVarP(&opts.preset, "preset", "p", "", "Initial planner preset")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Initial seed")
	cmd.Flags().Float64Var(&opts.startX, "start-x", 0, "Start position x")
	cmd.Flags().Float64Var(&opts.startY, "start-y", 0, "Start position y")

	cmd.MarkFlagRequired("input")

	return cmd
}

func createServeCmd() *cobra.Command {
	var (
		addr    string
		workers int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve planning over HTTP",
		Long: `Run an HTTP server with GET /api/presets, POST /api/plan (notes in, plan file
out) and POST /api/positions (ball positions of a solution at given times).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext(cmd.Context())
			defer cancel()
			return serve(ctx, addr, workers, timeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8088", "Listen address")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Requests planned at once")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Planning time limit per request")

	return cmd
}
