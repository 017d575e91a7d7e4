package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/palantir/palantir-compute-module-data-joiner/internal/app"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/foundry"
	"github.com/palantir/palantir-compute-module-data-joiner/pkg/redact"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "local":
		os.Exit(runLocal(os.Args[2:]))
	case "foundry":
		os.Exit(runFoundry(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runLocal(args []string) int {
	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	leftInput := fs.String("left-input", "", "Left input CSV file path")
	leftColumn := fs.String("left-join-column", "", "Join column name in the left input")
	rightInput := fs.String("right-input", "", "Right input CSV file path")
	rightColumn := fs.String("right-join-column", "", "Join column name in the right input")
	output := fs.String("joined-output", "", "Output CSV file path for the joined data")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *leftInput == "" || *leftColumn == "" || *rightInput == "" || *rightColumn == "" || *output == "" {
		_, _ = fmt.Fprintln(os.Stderr, "local requires --left-input, --left-join-column, --right-input, --right-join-column and --joined-output")
		return 2
	}

	if err := app.RunLocal(*leftInput, *leftColumn, *rightInput, *rightColumn, *output); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "local run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	fmt.Println("Successfully executed data joiner component.")
	return 0
}

func runFoundry(ctx context.Context, args []string) int {
	opts, err := loadOptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("foundry", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	leftAlias := fs.String("left-alias", "left_input_data", "Alias name for the left input dataset in RESOURCE_ALIAS_MAP")
	leftColumn := fs.String("left-join-column", "", "Join column name in the left input dataset")
	rightAlias := fs.String("right-alias", "right_input_data", "Alias name for the right input dataset in RESOURCE_ALIAS_MAP")
	rightColumn := fs.String("right-join-column", "", "Join column name in the right input dataset")
	outputAlias := fs.String("output-alias", "joined_output_data", "Alias name for the output dataset in RESOURCE_ALIAS_MAP")
	outputFilename := fs.String("output-filename", "joined_data.csv", "Filename to upload into the output dataset transaction")
	maxAttempts := fs.Int("max-attempts", opts.MaxAttempts, "Max attempts per catalog call for transient failures (env: MAX_ATTEMPTS)")
	retryDelay := fs.Duration("retry-delay", opts.RetryDelay, "Initial delay between transient-failure retries (env: RETRY_DELAY)")
	requestTimeout := fs.Duration("request-timeout", opts.RequestTimeout, "Per-call catalog request timeout (env: REQUEST_TIMEOUT)")
	rateLimitRPS := fs.Float64("rate-limit-rps", opts.RateLimitRPS, "Catalog request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *leftColumn == "" || *rightColumn == "" {
		_, _ = fmt.Fprintln(os.Stderr, "foundry requires --left-join-column and --right-join-column")
		return 2
	}

	env, err := foundry.LoadEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "foundry env error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	spec := app.FoundryJoinSpec{
		LeftAlias:      *leftAlias,
		LeftColumn:     *leftColumn,
		RightAlias:     *rightAlias,
		RightColumn:    *rightColumn,
		OutputAlias:    *outputAlias,
		OutputFilename: *outputFilename,
	}
	if err := app.RunFoundry(ctx, env, spec, app.Options{
		MaxAttempts:    *maxAttempts,
		RetryDelay:     *retryDelay,
		RequestTimeout: *requestTimeout,
		RateLimitRPS:   *rateLimitRPS,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "foundry run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	fmt.Println("Successfully executed data joiner component.")
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `joiner: pipeline-mode Foundry Compute Module (local + Foundry modes)

Usage:
  joiner <command> [flags]

Commands:
  local    Join two local CSV files
  foundry  Run in Foundry/pipeline mode (uses BUILD2_TOKEN + RESOURCE_ALIAS_MAP)

Examples:
  joiner local --left-input predictions.csv --left-join-column id \
    --right-input labels.csv --right-join-column id --joined-output joined.csv

Environment (foundry):
  FOUNDRY_SERVICE_DISCOVERY_V2  File path with service discovery YAML
  FOUNDRY_URL                   Foundry base URL fallback (e.g. https://<stack>.palantirfoundry.com)
  BUILD2_TOKEN                  File path containing a bearer token
  RESOURCE_ALIAS_MAP            File path containing alias -> {rid, branch} JSON
  DEFAULT_CA_PATH               Optional PEM bundle for TLS trust

`)
}

func loadOptionsFromEnv() (app.Options, error) {
	maxAttempts, err := envInt("MAX_ATTEMPTS", 3)
	if err != nil {
		return app.Options{}, err
	}
	retryDelay, err := envDuration("RETRY_DELAY", 500*time.Millisecond)
	if err != nil {
		return app.Options{}, err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return app.Options{}, err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return app.Options{}, err
	}

	return app.Options{
		MaxAttempts:    maxAttempts,
		RetryDelay:     retryDelay,
		RequestTimeout: requestTimeout,
		RateLimitRPS:   rateLimitRPS,
	}, nil
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
