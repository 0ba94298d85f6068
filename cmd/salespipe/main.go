package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"salespipe/internal/config"
	"salespipe/internal/infrastructure"
	"salespipe/internal/pipeline"
	"salespipe/pkg/contracts"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "salespipe",
		Version:   contracts.Version,
		Usage:     "Merge sales, product and region data into reports, charts and a SQLite database",
		Writer:    stdout,
		ErrWriter: stderr,
		// main decides the exit code
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			runCmd(),
			initConfigCmd(),
			versionCmd(),
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the full pipeline once",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"SALESPIPE_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "plain status output",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
			}

			logger, err := infrastructure.NewLogger(cfg.Logging, c.App.ErrWriter)
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to initialize logging: %v", err), 2)
			}
			defer infrastructure.CloseLogFile()

			tracing, err := infrastructure.InitializeTracing(cfg.Telemetry, c.App.ErrWriter, logger)
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to initialize tracing: %v", err), 2)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			defer tracing.Shutdown(ctx)

			p, err := pipeline.New(cfg,
				pipeline.WithLogger(logger),
				pipeline.WithTracing(tracing),
				pipeline.WithOutput(c.App.Writer, c.Bool("no-color")),
			)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			if _, err := p.Run(ctx); err != nil {
				return cli.Exit(fmt.Sprintf("pipeline run failed: %v", err), 1)
			}
			return nil
		},
	}
}

func initConfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "write the default configuration as YAML",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "salespipe.yaml",
				Usage:   "where to write the config file",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing file",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("output")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("%s already exists, use --force to overwrite", path), 1)
			}
			if err := config.WriteExample(path); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
			return nil
		},
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "the output type, possible values are: plain, json",
			},
		},
		Action: func(c *cli.Context) error {
			if c.String("output") == "json" {
				out, err := json.Marshal(contracts.GetVersionInfo())
				if err != nil {
					return fmt.Errorf("failed to marshal the output: %w", err)
				}
				fmt.Fprintln(c.App.Writer, string(out))
				return nil
			}
			fmt.Fprintln(c.App.Writer, contracts.GetFullVersionString())
			return nil
		},
	}
}
