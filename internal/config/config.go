// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"fmt"
	"io"
	"math"

	"github.com/iwvelando/icms-educacional/pkg/indicator"
	"github.com/iwvelando/icms-educacional/pkg/simulator"
	"github.com/iwvelando/icms-educacional/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for icms-educacional.
type Configuration struct {
	Dataset    DatasetConfig    `yaml:"dataset"`
	Selection  SelectionConfig  `yaml:"selection"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format   string `yaml:"format,omitempty"`   // pretty, csv, json
	ChartDir string `yaml:"chartDir,omitempty"` // optional directory for PNG charts
}

// DatasetConfig locates the dataset.
type DatasetConfig struct {
	Path   string `yaml:"path"`             // .xlsx, .csv, .db/.sqlite file or postgres:// DSN
	Sheet  string `yaml:"sheet,omitempty"`  // xlsx sheet, first sheet when empty
	Table  string `yaml:"table,omitempty"`  // SQL table
	Driver string `yaml:"driver,omitempty"` // sqlite, postgres; inferred when empty
}

// SelectionConfig is the municipality and years shown by the CLI.
type SelectionConfig struct {
	Municipality  string `yaml:"municipality"`
	ReferenceYear int    `yaml:"referenceYear,omitempty"` // latest year when zero
	CompareYear   int    `yaml:"compareYear,omitempty"`   // referenceYear-1 when zero
}

// SimulationConfig lists the what-if scenarios to run.
type SimulationConfig struct {
	ReferenceYear int        `yaml:"referenceYear,omitempty"` // selection reference year when zero
	Scenarios     []Scenario `yaml:"scenarios,omitempty"`
}

// Scenario is one hypothetical input to the simulator. Omitted numbers stay
// nil and reach the simulator as undefined, never as zero.
type Scenario struct {
	Name          string   `yaml:"name" json:"name"`
	Mode          string   `yaml:"mode,omitempty" json:"mode,omitempty"` // composed, direct, linear
	Formation     *float64 `yaml:"formation,omitempty" json:"formation,omitempty"`
	Participation *float64 `yaml:"participation,omitempty" json:"participation,omitempty"`
	Equity        *float64 `yaml:"equity,omitempty" json:"equity,omitempty"`
	Index         *float64 `yaml:"index,omitempty" json:"index,omitempty"`

	// Sub-indicator changes for the linear mode, used instead of the
	// absolute values when any of them is set.
	DeltaFormation     *float64 `yaml:"deltaFormation,omitempty" json:"deltaFormation,omitempty"`
	DeltaParticipation *float64 `yaml:"deltaParticipation,omitempty" json:"deltaParticipation,omitempty"`
	DeltaEquity        *float64 `yaml:"deltaEquity,omitempty" json:"deltaEquity,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// SimulationYear returns the reference year simulations run against.
func (c *Configuration) SimulationYear() int {
	if c.Simulation.ReferenceYear != 0 {
		return c.Simulation.ReferenceYear
	}
	return c.Selection.ReferenceYear
}

// Input converts the scenario into a simulator input. A missing number
// becomes NaN so the simulated index comes out undefined.
func (s Scenario) Input() (simulator.Input, error) {
	mode, err := simulator.ParseMode(s.Mode)
	if err != nil {
		return simulator.Input{}, err
	}
	in := simulator.Input{Mode: mode, Index: orNaN(s.Index)}
	in.Components.Formation = orNaN(s.Formation)
	in.Components.Participation = orNaN(s.Participation)
	in.Components.Equity = orNaN(s.Equity)
	if mode == simulator.ModeLinear && s.hasDeltas() {
		in.Delta = &indicator.Components{
			Formation:     orNaN(s.DeltaFormation),
			Participation: orNaN(s.DeltaParticipation),
			Equity:        orNaN(s.DeltaEquity),
		}
	}
	return in, nil
}

func (s Scenario) hasDeltas() bool {
	return s.DeltaFormation != nil || s.DeltaParticipation != nil || s.DeltaEquity != nil
}

type scenarioField struct {
	name  string
	value *float64
}

// required lists the numbers the scenario needs in mode.
func (s Scenario) required(mode simulator.Mode) []scenarioField {
	switch {
	case mode == simulator.ModeDirect:
		return []scenarioField{{"index", s.Index}}
	case mode == simulator.ModeLinear && s.hasDeltas():
		return []scenarioField{
			{"deltaFormation", s.DeltaFormation},
			{"deltaParticipation", s.DeltaParticipation},
			{"deltaEquity", s.DeltaEquity},
		}
	}
	return []scenarioField{
		{"formation", s.Formation},
		{"participation", s.Participation},
		{"equity", s.Equity},
	}
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Dataset.Path == "" {
		warnings = append(warnings, "dataset.path is empty")
	}

	warnings = append(warnings, validation.ValidateYears(c.Selection.ReferenceYear, c.Selection.CompareYear)...)

	for _, s := range c.Simulation.Scenarios {
		mode, err := simulator.ParseMode(s.Mode)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s': %v", s.Name, err))
			continue
		}
		deltas := mode == simulator.ModeLinear && s.hasDeltas()
		for _, f := range s.required(mode) {
			switch {
			case f.value == nil:
				warnings = append(warnings, fmt.Sprintf("Scenario '%s': %s is required for mode %s, the result will be undefined", s.Name, f.name, mode))
			case !deltas:
				warnings = append(warnings, validation.ValidateUnitInterval(s.Name, f.name, *f.value)...)
			}
		}
	}

	return warnings
}
