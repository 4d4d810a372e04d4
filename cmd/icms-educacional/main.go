package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/icms-educacional/internal/chart"
	"github.com/iwvelando/icms-educacional/internal/config"
	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/internal/loader"
	"github.com/iwvelando/icms-educacional/internal/server"
	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/output"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"github.com/iwvelando/icms-educacional/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	// Logs go to stderr so stdout carries only the report.
	config.OutputPaths = []string{"stderr"}
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of printing a report")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	chartDir := flag.String("chart-dir", "", "directory to write PNG charts into")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}
	if *chartDir != "" {
		conf.Output.ChartDir = *chartDir
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := loader.Load(ctx, logger, conf.Dataset)
	if err != nil {
		logger.Fatal("failed to load dataset",
			zap.String("op", "main"),
			zap.String("path", conf.Dataset.Path),
			zap.Error(err),
		)
	}

	if *serve {
		if err := runServer(ctx, logger, table, *serverConfigLocation); err != nil {
			logger.Fatal("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return
	}

	report, err := buildReport(logger, table, conf)
	if err != nil {
		logger.Fatal("failed to build report",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if conf.Output.ChartDir != "" {
		writeCharts(logger, table, report, conf.Output.ChartDir)
	}

	if err := writeReport(os.Stdout, outputFormat, report); err != nil {
		logger.Fatal("failed to write report",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

// buildReport computes every view for the configured selection. Views that
// cannot be computed from the dataset are logged and left out.
func buildReport(logger *zap.Logger, table *dataset.Table, conf *config.Configuration) (output.Report, error) {
	municipality := conf.Selection.Municipality
	if municipality == "" {
		return output.Report{}, errors.New("selection.municipality is required")
	}
	year, err := dashboard.ResolveYear(table, conf.Selection.ReferenceYear)
	if err != nil {
		return output.Report{}, err
	}

	var report output.Report
	if view, err := dashboard.Executive(logger, table, municipality, year, conf.Selection.CompareYear); err != nil {
		logger.Warn("executive view unavailable",
			zap.String("op", "main.buildReport"),
			zap.Error(err),
		)
	} else {
		report.Executive = &view
	}

	if view, err := dashboard.Indicator(logger, table, municipality, year); err != nil {
		logger.Warn("indicator view unavailable",
			zap.String("op", "main.buildReport"),
			zap.Error(err),
		)
	} else {
		report.Indicator = &view
	}

	if len(conf.Simulation.Scenarios) > 0 {
		simulationYear := conf.SimulationYear()
		if simulationYear == 0 {
			simulationYear = year
		}
		if view, err := dashboard.Simulate(logger, table, municipality, simulationYear, conf.Simulation.Scenarios); err != nil {
			logger.Warn("simulation unavailable",
				zap.String("op", "main.buildReport"),
				zap.Error(err),
			)
		} else {
			report.Simulation = &view
		}
	}

	if table.HasColumn(dataset.FieldCompositeIndex) {
		rt := output.NewRankingTable(table, dataset.FieldCompositeIndex, year)
		report.Ranking = &rt
	}

	if report.Executive == nil && report.Indicator == nil && report.Simulation == nil {
		return output.Report{}, fmt.Errorf("no view could be computed for %q in %d", municipality, year)
	}
	return report, nil
}

func writeReport(w io.Writer, format string, report output.Report) error {
	switch format {
	case constants.OutputFormatJSON:
		return output.JSONFormat(w, report)
	case constants.OutputFormatCSV:
		if report.Ranking == nil {
			return errors.New("csv output needs the composite index column")
		}
		return output.CsvFormat(w, *report.Ranking)
	default:
		output.PrettyFormat(w, report)
		return nil
	}
}

func writeCharts(logger *zap.Logger, table *dataset.Table, report output.Report, dir string) {
	if v := report.Indicator; v != nil {
		path, err := chart.SaveFile(dir, "trend.png", func(w io.Writer) error {
			return chart.Trend(w, *v)
		})
		logChart(logger, path, err)
	}

	if s := report.Simulation; s != nil {
		observations := revenue.Observations(table.Year(s.ReferenceYear))
		path, err := chart.SaveFile(dir, "revenue.png", func(w io.Writer) error {
			return chart.RevenueFit(w, s.Model, observations, s.Municipality)
		})
		logChart(logger, path, err)
	}
}

func logChart(logger *zap.Logger, path string, err error) {
	if err != nil {
		logger.Warn("failed to write chart",
			zap.String("op", "main.writeCharts"),
			zap.Error(err),
		)
		return
	}
	logger.Info("chart written",
		zap.String("op", "main.writeCharts"),
		zap.String("path", path),
	)
}

func runServer(ctx context.Context, logger *zap.Logger, table *dataset.Table, serverConfigPath string) error {
	cfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, table, cfg, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "main.runServer"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()
	logger.Info("shutting down",
		zap.String("op", "main.runServer"),
	)
	return srv.Shutdown(shutdownCtx)
}
