package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/QJohn2017/rsbeams/sdds"
)

// Convert rewrites one file in the job's target mode. Pages stream
// through one at a time, so file size does not bound memory.
func Convert(job Job) (pages int, err error) {
	opts := sdds.DefaultReadOptions()
	if job.Rows > 0 {
		opts.RowCount = job.Rows
	}
	r, err := sdds.OpenOptions(job.Input, opts)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	schema, err := r.ReadHeader()
	if err != nil {
		return 0, err
	}

	mode, err := job.targetMode(schema.Mode)
	if err != nil {
		return 0, err
	}
	w, err := sdds.Create(job.Output, schema.WithMode(mode))
	if err != nil {
		return 0, err
	}
	for {
		page, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			os.Remove(job.Output)
			return pages, err
		}
		if err := w.WritePage(page); err != nil {
			w.Close()
			os.Remove(job.Output)
			return pages, err
		}
		pages++
	}
	if err := w.Close(); err != nil {
		os.Remove(job.Output)
		return pages, err
	}
	return pages, nil
}

// Run executes every job in the plan, at most workers at a time. The
// first failure cancels jobs that have not started yet; jobs already
// running finish their current file.
func Run(ctx context.Context, plan *Plan, workers int, logger *zap.Logger) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range plan.Jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			pages, err := Convert(job)
			if err != nil {
				logger.Error("convert failed",
					zap.String("input", job.Input),
					zap.String("output", job.Output),
					zap.Error(err))
				return fmt.Errorf("%s: %w", job.Input, err)
			}
			logger.Info("converted",
				zap.String("input", job.Input),
				zap.String("output", job.Output),
				zap.Int("pages", pages),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	return g.Wait()
}
