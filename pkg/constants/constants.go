// Package constants provides shared constants for the icms-educacional application.
package constants

import "time"

// Composite index weights. IQE = 0.70·IQEF + 0.15·P + 0.15·IMEG.
const (
	// WeightFormation is the weight of the formation sub-indicator (IQEF).
	WeightFormation = 0.70

	// WeightParticipation is the weight of the participation sub-indicator (P).
	WeightParticipation = 0.15

	// WeightEquity is the weight of the equity sub-indicator (IMEG).
	WeightEquity = 0.15
)

// Estimation thresholds
const (
	// MinTrendPoints is the minimum number of defined (year, value) pairs for a trend fit.
	MinTrendPoints = 2

	// MinRevenueSample is the minimum number of (index, revenue) pairs for a revenue fit.
	MinRevenueSample = 5

	// TransferYearOffset is the distance between the reference year an index
	// is computed for and the year the corresponding revenue is transferred.
	TransferYearOffset = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// Tolerance is the tolerance used for floating point comparisons of indices.
	Tolerance = 1e-9

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultSQLTable is the table read when a SQL dataset source has no table configured.
	DefaultSQLTable = "iqe"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size for simulations (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRequestTimeout bounds each API request, chart rendering included
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout is how long the server drains on shutdown
	DefaultShutdownTimeout = 10 * time.Second
)
