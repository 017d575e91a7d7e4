package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/palantir/palantir-compute-module-data-joiner/pkg/foundry"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/table"
)

// Options controls catalog I/O behavior for pipeline-mode runs.
type Options struct {
	// MaxAttempts bounds each catalog call, including the first attempt.
	MaxAttempts int
	// RetryDelay is the initial sleep between transient-failure retries.
	RetryDelay time.Duration
	// RequestTimeout bounds each individual catalog call.
	RequestTimeout time.Duration
	// RateLimitRPS caps catalog requests per second; <=0 disables.
	RateLimitRPS float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	return o
}

// RunLocal joins two local CSV files and writes the joined CSV to outputPath.
func RunLocal(leftPath, leftColumn, rightPath, rightColumn, outputPath string) error {
	left, err := readTableFile(leftPath)
	if err != nil {
		return fmt.Errorf("read left_input_data: %w", err)
	}
	right, err := readTableFile(rightPath)
	if err != nil {
		return fmt.Errorf("read right_input_data: %w", err)
	}

	joined, err := joinTables(left, leftColumn, right, rightColumn)
	if err != nil {
		return err
	}

	outF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()

	if err := table.WriteCSV(outF, joined); err != nil {
		return err
	}
	return outF.Close()
}

// joinTables validates both join columns, performs the inner join, and rejects
// joined outputs whose column names collide.
func joinTables(left *table.Table, leftColumn string, right *table.Table, rightColumn string) (*table.Table, error) {
	if err := table.ValidateJoinColumn(left, leftColumn, "left_input_data"); err != nil {
		return nil, err
	}
	if err := table.ValidateJoinColumn(right, rightColumn, "right_input_data"); err != nil {
		return nil, err
	}

	joined, err := table.Join(left, leftColumn, right, rightColumn)
	if err != nil {
		return nil, err
	}

	if dups := joined.DuplicateColumns(); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate column names found: %v", dups)
	}
	return joined, nil
}

func readTableFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return table.ReadCSV(f)
}

// FoundryJoinSpec names the datasets and join columns for a pipeline-mode run.
// Aliases are resolved through RESOURCE_ALIAS_MAP.
type FoundryJoinSpec struct {
	LeftAlias   string
	LeftColumn  string
	RightAlias  string
	RightColumn string

	OutputAlias    string
	OutputFilename string
}

// RunFoundry runs the pipeline-mode orchestration against the minimal dataset API surface:
// read both input datasets as CSV, join, and commit the joined CSV to the output dataset.
func RunFoundry(ctx context.Context, env foundry.Env, spec FoundryJoinSpec, opts Options) error {
	opts = opts.withDefaults()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	logf := func(format string, args ...any) {
		prefix := make([]any, 0, len(args)+1)
		prefix = append(prefix, runID)
		prefix = append(prefix, args...)
		logger.Printf("run=%s "+format, prefix...)
	}
	runStart := time.Now()

	leftRef, err := env.Dataset(spec.LeftAlias)
	if err != nil {
		return err
	}
	rightRef, err := env.Dataset(spec.RightAlias)
	if err != nil {
		return err
	}
	outputRef, err := env.Dataset(spec.OutputAlias)
	if err != nil {
		return err
	}

	outputFilename := spec.OutputFilename
	if outputFilename == "" {
		outputFilename = "joined_data.csv"
	}

	logf(
		"foundry run start: left=%s@%s leftColumn=%q right=%s@%s rightColumn=%q output=%s@%s outputFile=%s maxAttempts=%d timeout=%s rateLimitRPS=%g",
		leftRef.RID,
		leftRef.Branch,
		spec.LeftColumn,
		rightRef.RID,
		rightRef.Branch,
		spec.RightColumn,
		outputRef.RID,
		outputRef.Branch,
		outputFilename,
		opts.MaxAttempts,
		opts.RequestTimeout,
		opts.RateLimitRPS,
	)

	client, err := foundry.NewClient(env.Services.APIGateway, env.Token, env.DefaultCAPath, opts.RateLimitRPS)
	if err != nil {
		return err
	}

	readStart := time.Now()
	left, err := readDatasetTable(ctx, client, leftRef, opts)
	if err != nil {
		return fmt.Errorf("read left_input_data: %w", err)
	}
	right, err := readDatasetTable(ctx, client, rightRef, opts)
	if err != nil {
		return fmt.Errorf("read right_input_data: %w", err)
	}
	logf(
		"loaded inputs: leftRows=%d leftColumns=%d rightRows=%d rightColumns=%d readDuration=%s",
		left.NumRows(),
		left.NumColumns(),
		right.NumRows(),
		right.NumColumns(),
		time.Since(readStart).Round(time.Millisecond),
	)

	joinStart := time.Now()
	joined, err := joinTables(left, spec.LeftColumn, right, spec.RightColumn)
	if err != nil {
		return err
	}
	logf(
		"join complete: rows=%d columns=%d joinDuration=%s",
		joined.NumRows(),
		joined.NumColumns(),
		time.Since(joinStart).Round(time.Millisecond),
	)

	var outBuf bytes.Buffer
	if err := table.WriteCSV(&outBuf, joined); err != nil {
		return err
	}

	writeStart := time.Now()
	if err := uploadDatasetCSV(ctx, client, outputRef, outputFilename, outBuf.Bytes(), opts, logf); err != nil {
		return err
	}
	logf(
		"foundry run complete: output committed bytes=%d writeDuration=%s totalDuration=%s",
		outBuf.Len(),
		time.Since(writeStart).Round(time.Millisecond),
		time.Since(runStart).Round(time.Millisecond),
	)
	return nil
}

func readDatasetTable(ctx context.Context, client *foundry.Client, ref foundry.DatasetRef, opts Options) (*table.Table, error) {
	var raw []byte
	err := foundry.RetryTransient(ctx, opts.MaxAttempts, opts.RetryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
		defer cancel()

		b, err := client.ReadTableCSV(callCtx, ref.RID, ref.Branch)
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table.ReadCSV(bytes.NewReader(raw))
}

// uploadDatasetCSV writes the CSV into a fresh SNAPSHOT transaction. If the
// output dataset already has an OPEN transaction, it is reused rather than
// failing the run.
func uploadDatasetCSV(
	ctx context.Context,
	client *foundry.Client,
	ref foundry.DatasetRef,
	filename string,
	csvBytes []byte,
	opts Options,
	logf func(format string, args ...any),
) error {
	txnID, err := client.CreateTransaction(ctx, ref.RID, ref.Branch)
	if err != nil {
		if !foundry.IsOpenTransactionConflict(err) {
			return fmt.Errorf("create output transaction: %w", err)
		}
		existing, ok, findErr := client.FindLatestOpenTransaction(ctx, ref.RID)
		if findErr != nil {
			return fmt.Errorf("find open output transaction: %w", findErr)
		}
		if !ok {
			return fmt.Errorf("create output transaction: %w", err)
		}
		logf("reusing open transaction %s on output dataset %s", existing, ref.RID)
		txnID = existing
	}

	err = foundry.RetryTransient(ctx, opts.MaxAttempts, opts.RetryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
		defer cancel()
		return client.UploadFile(callCtx, ref.RID, txnID, filename, "text/csv", csvBytes)
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}

	err = foundry.RetryTransient(ctx, opts.MaxAttempts, opts.RetryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
		defer cancel()
		return client.CommitTransaction(callCtx, ref.RID, txnID)
	})
	if err != nil {
		return fmt.Errorf("commit output transaction: %w", err)
	}
	return nil
}
