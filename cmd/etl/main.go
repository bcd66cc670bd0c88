package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"scetl/internal/config"
	"scetl/internal/dbconn"
	"scetl/internal/logging"
	"scetl/internal/metrics"
	"scetl/internal/metrics/datadog"
	"scetl/internal/metrics/prompush"
	"scetl/internal/pipeline"
	"scetl/internal/quality/rules"

	// register all database drivers.
	// config specifies which to use but we build in support for all of them.
	_ "scetl/internal/dbconn/drivers"
)

// main is the entry point for the pipeline binary. It loads and lints the
// run configuration, wires logging, metrics, and the database pool, and
// executes the full quality-gated run.
func main() {
	var (
		cfgPath    string
		tablesFlag string
		lintOnly   bool
	)
	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path")
	flag.StringVar(&tablesFlag, "tables", "", "comma-separated table list (default: full supply-chain set)")
	flag.BoolVar(&lintOnly, "validate", false, "lint the configuration and exit")
	noValidation := flag.Bool("no-validation", false, "skip quality validation")
	noTransform := flag.Bool("no-transform", false, "skip transformation")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if len(config.Errs(issues)) > 0 {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if lintOnly {
		fmt.Printf("configuration is valid: %s\n", cfgPath)
		return
	}

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fatalf("logging: %v", err)
	}
	defer closeLog()

	setupMetrics(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbconn.Open(ctx, cfg, log)
	if err != nil {
		log.Error("database unavailable", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	engine := rules.NewEngine()
	if err := rules.DefineStandardRules(engine); err != nil {
		log.Error("rule catalog", zap.Error(err))
		os.Exit(1)
	}

	var tables []string
	if tablesFlag != "" {
		for _, t := range strings.Split(tablesFlag, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	}

	p := pipeline.New(cfg, db, engine, log)
	stats, err := p.RunFullPipeline(ctx, tables,
		cfg.EnableValidation && !*noValidation,
		cfg.EnableTransformation && !*noTransform)
	if err != nil {
		log.Error("run interrupted", zap.Error(err))
		os.Exit(1)
	}
	if failed := stats.Failed(); len(failed) > 0 {
		log.Error("run finished with failed tables", zap.Strings("tables", failed))
		os.Exit(1)
	}
}

// setupMetrics installs the backend the config names, if any. Metrics stay
// on the nop backend when neither push target is configured.
func setupMetrics(cfg config.Config, log *zap.Logger) {
	switch {
	case cfg.PushgatewayURL != "":
		b, err := prompush.NewBackend("scetl", cfg.PushgatewayURL)
		if err != nil {
			log.Warn("pushgateway backend unavailable, metrics disabled", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics: pushgateway", zap.String("url", cfg.PushgatewayURL))
	case cfg.StatsdAddr != "":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.StatsdAddr, Namespace: "scetl."})
		if err != nil {
			log.Warn("datadog backend unavailable, metrics disabled", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics: datadog", zap.String("addr", cfg.StatsdAddr))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
