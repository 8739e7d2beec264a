// Command qcbatch generates a batch of random circuits across a worker pool,
// rendering progress and optionally archiving the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/amartinfer/qcbatch/batch"
	"github.com/amartinfer/qcbatch/observe"
	"github.com/amartinfer/qcbatch/progress"
	"github.com/amartinfer/qcbatch/seed"
	"github.com/amartinfer/qcbatch/server/prom"
	"github.com/amartinfer/qcbatch/store"
	"github.com/amartinfer/qcbatch/store/mongodb"
)

func main() {
	app := &cli.App{
		Name:  "qcbatch",
		Usage: "generate random circuits in parallel",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "circuits", Aliases: []string{"n"}, Value: 1000, Usage: "number of independent tasks"},
			&cli.IntFlag{Name: "width", Value: 4, Usage: "lanes per circuit"},
			&cli.IntFlag{Name: "depth", Value: 4, Usage: "layers per circuit"},
			&cli.IntFlag{Name: "workers", Value: 0, Usage: "worker count, 0 = all CPUs"},
			&cli.Int64Flag{Name: "seed", Value: 0, Usage: "master seed for reproducible runs, 0 = fresh entropy"},
			&cli.StringFlag{Name: "progress", Value: "bar", Usage: "progress renderer: bar, log or off"},
			&cli.StringFlag{Name: "mongo-uri", Usage: "archive circuits to this MongoDB instance"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "expose prometheus metrics on this address"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := c.Int("circuits")

	var seeds []int64
	if master := c.Int64("seed"); master != 0 {
		seeds, err = seed.DrawDeterministic(master, n)
	} else {
		seeds, err = seed.Draw(n)
	}
	if err != nil {
		return err
	}

	var reporter progress.Reporter
	switch c.String("progress") {
	case "bar":
		reporter = progress.NewBar(os.Stderr, n, 20)
	case "log":
		reporter = progress.NewLogReporter(logger, n, 0)
	case "off":
		reporter = progress.NewNop()
	default:
		return cli.Exit(fmt.Sprintf("unknown progress renderer %q", c.String("progress")), 2)
	}

	recorder := observe.NewPromFactory("qcbatch_task_duration_ms")
	recorder.MustRegister(nil)

	var archive store.Archive
	if uri := c.String("mongo-uri"); uri != "" {
		archive, err = mongodb.New(ctx, uri, mongodb.Option{Logger: logger})
		if err != nil {
			return err
		}
		defer archive.Close(context.Background())
	}

	if addr := c.String("metrics-addr"); addr != "" {
		metrics := prom.New(addr, "/metrics", prom.InstanceOption{Logger: logger})
		metrics.Start()
		defer metrics.CloseWithContext(context.Background())
	}

	opts := []batch.Option{
		batch.WithReporter(reporter),
		batch.WithRecorder(observe.Chain{
			observe.NewLoggerFactory(logger, false, "task settled"),
			recorder,
		}),
	}
	if archive != nil {
		opts = append(opts, batch.WithArchive(archive))
	}

	runner, err := batch.NewRunner(batch.Spec{
		Circuits: n,
		Width:    c.Int("width"),
		Depth:    c.Int("depth"),
		Seeds:    seeds,
		Workers:  c.Int("workers"),
	}, opts...)
	if err != nil {
		return err
	}

	res, runErr := runner.Run(ctx)

	logger.Info("batch done",
		zap.Int("circuits", n),
		zap.Int("failed", len(res.Failed())),
		zap.Duration("elapsed", res.Elapsed),
	)

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("dispatch interrupted: %v", runErr), 1)
	}
	if err := res.Err(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
