// Command carvex scans a storage device for deleted text content and
// recovers it into an output directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tnoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"

	appcarving "github.com/carvex/carvex/internal/app/carving"
	"github.com/carvex/carvex/internal/config"
	"github.com/carvex/carvex/internal/domain/carving"
	"github.com/carvex/carvex/internal/domain/detection"
	"github.com/carvex/carvex/internal/domain/filtering"
	"github.com/carvex/carvex/internal/infra/resources"
	"github.com/carvex/carvex/pkg/common/logger"
	"github.com/carvex/carvex/pkg/common/otel"
)

const serviceType = "carvex"

func main() {
	_, _ = maxprocs.Set()

	flags := pflag.NewFlagSet(serviceType, pflag.ExitOnError)
	flags.Usage = usage(flags)

	flags.String("device", "", "device path to scan (volume root, raw disk, or image file)")
	flags.String("out", "", "output directory for recovered files")
	flags.StringSlice("types", nil, "restrict recovery to these type labels (e.g. txt,pdf,docx)")
	flags.String("search", "", "recover only files whose name matches (substring, or * and % wildcards)")
	flags.String("profile", string(resources.ProfileBalanced), "resource profile: performance, balanced, or low")
	flags.Bool("preview", false, "list what would be recovered without writing files")
	flags.Bool("no-system-filter", false, "do not exclude operating system artifacts")
	flags.String("config", "", "path to a configuration file overriding the built-in defaults")
	flags.String("log-level", "info", "minimum log level: debug, info, warn, or error")
	flags.String("otel-endpoint", "", "OTLP gRPC endpoint for traces and metrics (telemetry disabled when empty)")
	flags.Float64("otel-sampling-ratio", 1, "trace sampling probability when telemetry is enabled")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("CARVEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		stdlog.Fatalf("binding flags: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		stdlog.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, val := range r.Attributes {
				errorAttrs[k] = val
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string { return otel.GetTraceID(ctx) }

	svcName := fmt.Sprintf("CARVEX-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stderr, parseLevel(v.GetString("log-level")), svcName, traceIDFn, logEvents, metadata)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Default()
	if path := v.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	}
	if err != nil {
		log.Error(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	command := "scan"
	if args := flags.Args(); len(args) > 0 {
		command = args[0]
	}
	if command == "types" {
		for _, t := range cfg.SupportedTypes() {
			fmt.Println(t)
		}
		return
	}
	if command != "scan" {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		flags.Usage()
		os.Exit(2)
	}

	tracer, mp, telemetryTeardown, err := setupTelemetry(log, v)
	if err != nil {
		log.Error(ctx, "failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryTeardown(ctx)

	carverMetrics, err := appcarving.NewCarverMetrics(mp)
	if err != nil {
		log.Error(ctx, "failed to create metrics collector", "error", err)
		os.Exit(1)
	}

	signatures, err := cfg.SignatureTable()
	if err != nil {
		log.Error(ctx, "invalid signature table", "error", err)
		os.Exit(1)
	}
	classifier := detection.NewClassifier(signatures)

	filterEngine, err := filtering.NewEngine(classifier, filtering.Config{
		SystemFiles:       cfg.SystemFiles,
		SystemExtensions:  cfg.SystemExtensions,
		SystemDirectories: cfg.SystemDirectories,
	})
	if err != nil {
		log.Error(ctx, "failed to build filter engine", "error", err)
		os.Exit(1)
	}

	budget := resources.NewBudget(resources.Profile(v.GetString("profile")))
	log.Info(ctx, "resource budget derived",
		"profile", v.GetString("profile"),
		"max_memory_mb", budget.MaxMemoryMB,
		"buffer_depth", budget.BufferDepth,
	)

	progress := func(p appcarving.Progress) {
		fmt.Fprintf(os.Stderr, "scanned %d blocks (%.1f GB), found %d files, %.0f MB memory\n",
			p.Blocks, float64(p.Offset)/(1<<30), p.Found, p.MemoryMB)
	}

	svc := appcarving.NewService(filterEngine, classifier, budget, progress, log, carverMetrics, tracer)

	// First interrupt requests a graceful stop; a second one aborts.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "stopping after current block (press Ctrl-C again to abort)")
		svc.Cancel()
		<-sigCh
		os.Exit(1)
	}()

	req := appcarving.RecoverRequest{
		DevicePath:    v.GetString("device"),
		OutputDir:     v.GetString("out"),
		FileTypes:     v.GetStringSlice("types"),
		SearchPattern: v.GetString("search"),
		FilterSystem:  !v.GetBool("no-system-filter"),
		PreviewOnly:   v.GetBool("preview"),
	}

	count, err := svc.Recover(ctx, req)
	if err != nil {
		log.Error(ctx, "recovery scan failed", "error", err, "files_found", count)
		printSummary(svc.Accepted())
		os.Exit(1)
	}

	printSummary(svc.Accepted())
	fmt.Printf("%d file(s) recovered\n", count)
}

// setupTelemetry initializes OTLP export when an endpoint is configured and
// degrades to no-op providers otherwise.
func setupTelemetry(log *logger.Logger, v *viper.Viper) (trace.Tracer, metric.MeterProvider, func(context.Context), error) {
	endpoint := v.GetString("otel-endpoint")
	if endpoint == "" {
		return tnoop.NewTracerProvider().Tracer(serviceType), mnoop.NewMeterProvider(), func(context.Context) {}, nil
	}

	prob := v.GetFloat64("otel-sampling-ratio")
	if prob <= 0 {
		prob = 1
	}

	tp, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      serviceType,
		ExporterEndpoint: endpoint,
		Probability:      prob,
		ResourceAttributes: map[string]string{
			"library.language": "go",
		},
		InsecureExporter: true,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return tp.Tracer(serviceType), otel.GetMeterProvider(), teardown, nil
}

// printSummary renders the accepted recoveries, including the partial list
// after a cancelled or failed run.
func printSummary(files []carving.RecoveredFile) {
	if len(files) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tTYPE\tSIZE\tOFFSET\tMETHOD\tORIGINAL NAME")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			f.Filename, f.Type, f.Size, f.Offset, f.Method, f.OriginalName)
	}
	w.Flush()
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func usage(flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, `carvex recovers deleted text content from storage devices.

Usage:
  carvex [scan] --device <path> --out <dir> [flags]
  carvex types

Commands:
  scan   scan a device and recover deleted text (default)
  types  list the supported file type labels

Flags:
%s`, flags.FlagUsages())
	}
}
