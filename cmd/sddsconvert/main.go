// sddsconvert - rewrite SDDS files between data modes and byte orders
//
// Usage:
//
//	sddsconvert -o out.sdds [-mode ascii|binary] [-endian little|big|native] [-rows N] input.sdds
//	sddsconvert -batch plan.yaml [-workers N] [-log-json]
//
// Unset -mode and -endian keep the input's settings, so the tool also
// serves as a canonicalizing copy. An output name ending in .gz is
// gzip-compressed. Batch mode reads a YAML plan and converts the listed
// files concurrently.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/QJohn2017/rsbeams/internal/batch"
)

var (
	output    = flag.String("o", "", "output path (required outside batch mode)")
	mode      = flag.String("mode", "", "output data mode: ascii or binary")
	endian    = flag.String("endian", "", "binary byte order: little, big, or native")
	rows      = flag.Int("rows", 0, "page row count for binary no_row_counts inputs")
	batchFile = flag.String("batch", "", "YAML conversion plan; converts many files concurrently")
	workers   = flag.Int("workers", runtime.NumCPU(), "concurrent jobs in batch mode")
	logJSON   = flag.Bool("log-json", false, "JSON log lines instead of console output")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	logger, err := newLogger(*logJSON)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer logger.Sync()

	if *batchFile != "" {
		if flag.NArg() != 0 {
			fatal("batch mode takes no input arguments")
		}
		plan, err := batch.LoadPlan(*batchFile)
		if err != nil {
			fatal("%v", err)
		}
		if err := batch.Run(context.Background(), plan, *workers, logger); err != nil {
			fatal("%v", err)
		}
		return
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	input := flag.Arg(0)
	if *output == "" {
		fatal("-o is required outside batch mode")
	}
	if *output == input {
		fatal("output would overwrite the input")
	}

	job := batch.Job{Input: input, Output: *output, Mode: *mode, Endian: *endian, Rows: *rows}
	start := time.Now()
	pages, err := batch.Convert(job)
	if err != nil {
		fatal("%s: %v", input, err)
	}
	logger.Info("converted",
		zap.String("input", input),
		zap.String("output", *output),
		zap.Int("pages", pages),
		zap.Duration("elapsed", time.Since(start)))
}

func usage() {
	fmt.Fprint(os.Stderr, `sddsconvert - rewrite SDDS files between data modes and byte orders

Usage:
  sddsconvert -o out.sdds [options] input.sdds
  sddsconvert -batch plan.yaml [-workers N] [-log-json]

Options:
  -o FILE        output path; a .gz suffix enables gzip compression
  -mode M        ascii or binary (default: keep the input's mode)
  -endian E      little, big, or native (default: keep the input's order)
  -rows N        page row count for binary no_row_counts inputs
  -batch FILE    YAML plan converting many files concurrently
  -workers N     concurrent jobs in batch mode (default: number of CPUs)
  -log-json      JSON log lines instead of console output

A plan file lists jobs with optional shared defaults:

  defaults:
    mode: binary
    endian: little
  jobs:
    - input: runs/step1.sdds
      output: runs/step1.bin.sdds
    - input: runs/step2.sdds
      output: runs/step2.bin.sdds
      mode: ascii
`)
}

func newLogger(jsonLogs bool) (*zap.Logger, error) {
	if jsonLogs {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sddsconvert: "+format+"\n", args...)
	os.Exit(1)
}
