package main

import (
	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"go.viam.com/wahba/utils"
	"go.viam.com/wahba/wahba"
)

const (
	// Flags.
	flagConfig    = "config"
	flagDebug     = "debug"
	flagLogFile   = "log-file"
	flagRedundant = "redundant"
	flagCollect   = "collect-errors"
	flagInput     = "input"
	flagJSON      = "json"
	flagSingle    = "single"
)

// app holds the state shared by the commands once the global flags are parsed.
type app struct {
	logger golog.Logger
	solver *wahba.Solver
}

func newApp() *cli.App {
	state := &app{}
	inputFlags := []cli.Flag{
		&cli.PathFlag{
			Name:      flagInput,
			Aliases:   []string{"i"},
			TakesFile: true,
			Usage:     "read the request from `FILE` instead of stdin",
		},
		&cli.BoolFlag{
			Name:  flagJSON,
			Usage: "print results as JSON instead of a table",
		},
	}

	return &cli.App{
		Name:  "wahba",
		Usage: "solve and differentiate quaternion attitude problems",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:      flagConfig,
				Aliases:   []string{"c"},
				TakesFile: true,
				Usage:     "load solver configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:      flagLogFile,
				TakesFile: true,
				Usage:     "also write logs to `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagRedundant,
				Usage: "solve with the redundant norm constraint",
			},
			&cli.BoolFlag{
				Name:  flagCollect,
				Usage: "attempt every batch element and report failures per element",
			},
		},
		Before: state.before,
		Commands: []*cli.Command{
			{
				Name:      "solve",
				Usage:     "solve a batch of 4x4 cost matrices",
				UsageText: `wahba solve [--single] < {"matrices": [[a00, a01, ..., a33], ...]}`,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  flagSingle,
						Usage: "treat the input matrices as single precision",
					},
				}, inputFlags...),
				Action: state.solveAction,
			},
			{
				Name:      "gradient",
				Usage:     "solve a batch and map upstream quaternion gradients to the cost matrices",
				UsageText: `wahba gradient < {"matrices": [[...16 values]], "upstream": [[g0, g1, g2, g3]]}`,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  flagSingle,
						Usage: "treat input and output matrices as single precision",
					},
				}, inputFlags...),
				Action: state.gradientAction,
			},
			{
				Name:      "observe",
				Usage:     "estimate the attitude that best aligns weighted vector observations",
				UsageText: `wahba observe < {"observations": [{"body": [x, y, z], "reference": [x, y, z], "weight": w}]}`,
				Flags:     inputFlags,
				Action:    state.observeAction,
			},
		},
	}
}

func (a *app) before(c *cli.Context) error {
	switch path := c.Path(flagLogFile); {
	case path != "":
		logger, err := utils.NewFileLogger(path, "wahba", c.Bool(flagDebug))
		if err != nil {
			return err
		}
		a.logger = logger
	case c.Bool(flagDebug):
		a.logger = golog.NewDebugLogger("wahba")
	default:
		a.logger = zap.NewNop().Sugar()
	}

	cfg := wahba.DefaultConfig()
	if path := c.Path(flagConfig); path != "" {
		loaded, err := wahba.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if c.Bool(flagRedundant) {
		cfg.Redundant = true
	}
	if c.Bool(flagCollect) {
		cfg.BatchPolicy = wahba.CollectErrors
	}

	solver, err := wahba.NewSolver(cfg, a.logger)
	if err != nil {
		return err
	}
	a.solver = solver
	return nil
}
