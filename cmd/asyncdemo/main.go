// asyncdemo exercises the worker and chain primitives from the command line.
package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-async"
	"github.com/goliatone/go-async/chain"
	"github.com/goliatone/go-async/worker"
)

type cli struct {
	Worker workerCmd `cmd:"" help:"Run a counting worker loop with pause/resume."`
	Chain  chainCmd  `cmd:"" help:"Run a background/UI pipeline over a value."`
}

type workerCmd struct {
	Iterations int           `help:"Iterations before the worker stops itself." default:"5"`
	Delay      time.Duration `help:"Delay between iterations." default:"200ms"`
	Pause      time.Duration `help:"Pause the worker for this long halfway through." default:"0"`
}

func (c *workerCmd) Run() error {
	var w *worker.Worker
	count := 0
	w = worker.New(worker.LoopFunc(func(ctx context.Context) error {
		count++
		fmt.Printf("iteration %d/%d\n", count, c.Iterations)
		if count >= c.Iterations {
			w.RequestStop()
		}
		return nil
	}), worker.WithName("demo"), worker.WithIterationDelay(c.Delay))

	if err := w.Start(); err != nil {
		return err
	}

	if c.Pause > 0 {
		time.Sleep(c.Delay * time.Duration(c.Iterations) / 2)
		fmt.Printf("pausing for %s\n", c.Pause)
		w.Pause()
		time.Sleep(c.Pause)
		w.Resume()
	}

	if err := w.Wait(context.Background()); err != nil {
		return err
	}

	info := w.Info()
	fmt.Printf("stopped after %d iterations (run=%s)\n", count, info.RunID)
	return nil
}

type chainCmd struct {
	Value  int           `help:"Seed value fed to the pipeline." default:"5"`
	Delay  time.Duration `help:"Delay between the two transform steps." default:"100ms"`
	Cancel bool          `help:"Fire the cancellation signal before the pipeline starts."`
}

func (c *chainCmd) Run() error {
	m := async.NewLoopMarshaller()
	defer m.Stop()

	sig := async.NewSignal()
	if c.Cancel {
		sig.Cancel()
	}

	seed := chain.Promote(
		chain.New(m).WithCancellation(sig),
		func(sig *async.Signal) (int, error) {
			fmt.Printf("seed: %d\n", c.Value)
			return c.Value, nil
		},
	)
	rendered := chain.Map(
		seed.
			ThenDelay(c.Delay).
			ThenUI(func(v int) {
				fmt.Printf("ui checkpoint: %d\n", v)
			}),
		func(sig *async.Signal, v int) (string, error) {
			return strconv.Itoa(v * 2), nil
		},
	)

	out := rendered.
		ThenUIOutcome(func(o async.Outcome[string]) {
			fmt.Printf("finished: %s\n", o.Label())
		}).
		Run().
		Outcome()

	if out.IsFault() {
		return out.Err()
	}
	fmt.Printf("result: %s (%s)\n", out.Value(), out.Label())
	return nil
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Name("asyncdemo"),
		kong.Description("Demos for the go-async worker and chain primitives."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
