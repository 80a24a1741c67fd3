package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"twcpi/internal/dataprocessing"
	apperrors "twcpi/internal/errors"
	"twcpi/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Render   RenderConfig   `yaml:"render" envconfig:"RENDER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Metrics  MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`
	History  HistoryConfig  `yaml:"history" envconfig:"HISTORY"`
}

// PipelineConfig selects the input, the output and the rebasing parameters
type PipelineConfig struct {
	InputPath      string        `yaml:"input_path" envconfig:"INPUT_PATH" validate:"required"`
	OutputPath     string        `yaml:"output_path" envconfig:"OUTPUT_PATH" validate:"required"`
	BaseDate       string        `yaml:"base_date" envconfig:"BASE_DATE" validate:"required"`
	Categories     []string      `yaml:"categories" envconfig:"CATEGORIES" validate:"min=1,dive,required"`
	DiagnosticDate string        `yaml:"diagnostic_date" envconfig:"DIAGNOSTIC_DATE"`
	HeaderRow      int           `yaml:"header_row" envconfig:"HEADER_ROW" validate:"min=1"`
	PeriodColumn   string        `yaml:"period_column" envconfig:"PERIOD_COLUMN" validate:"required"`
	MetadataMarker string        `yaml:"metadata_marker" envconfig:"METADATA_MARKER"`
	Encoding       string        `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=utf-8 big5"`
	AuditCSVPath   string        `yaml:"audit_csv_path" envconfig:"AUDIT_CSV_PATH"`
	AuditXLSXPath  string        `yaml:"audit_xlsx_path" envconfig:"AUDIT_XLSX_PATH"`
	Events         []EventConfig `yaml:"events" ignored:"true" validate:"dive"`
}

// EventConfig is a chart annotation as written in the config file
type EventConfig struct {
	Date   string `yaml:"date" validate:"required"`
	Label  string `yaml:"label" validate:"required"`
	Anchor string `yaml:"anchor" validate:"required"`
}

// RenderConfig contains chart rendering configuration
type RenderConfig struct {
	Width      int     `yaml:"width" envconfig:"WIDTH" validate:"min=100"`
	Height     int     `yaml:"height" envconfig:"HEIGHT" validate:"min=100"`
	DPI        float64 `yaml:"dpi" envconfig:"DPI" validate:"gt=0"`
	FontPath   string  `yaml:"font_path" envconfig:"FONT_PATH"`
	Title      string  `yaml:"title" envconfig:"TITLE" validate:"required"`
	YAxisLabel string  `yaml:"y_axis_label" envconfig:"Y_AXIS_LABEL"`
	TickMonths int     `yaml:"tick_months" envconfig:"TICK_MONTHS" validate:"min=1,max=60"`
	BaseLine   bool    `yaml:"base_line" envconfig:"BASE_LINE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TracingConfig controls the OpenTelemetry span exporter
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// FilePath receives the exported spans; empty means stdout.
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// MetricsConfig controls the Prometheus textfile written after each run
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" envconfig:"TEXTFILE_PATH"`
}

// HistoryConfig points at the SQLite run ledger
type HistoryConfig struct {
	// DBPath is the database file; empty disables the ledger.
	DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
}

// Load builds the configuration from defaults, the YAML config file, a .env
// file and CPI_* environment variables, in increasing order of precedence.
// configFile may be empty, in which case the usual locations are searched.
// The result is not validated; callers apply their overrides and then call
// Validate.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config from %s", configFile), err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Validate checks struct constraints and that every month can be parsed
func (c *Config) Validate() error {
	c.Pipeline.Encoding = strings.ToLower(strings.TrimSpace(c.Pipeline.Encoding))

	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return apperrors.NewConfigError(fmt.Sprintf("logging output %q needs a file path", c.Logging.Output), nil)
	}

	if _, err := c.Pipeline.BaseMonth(); err != nil {
		return fmt.Errorf("base_date: %w", err)
	}
	if _, err := c.Pipeline.DiagnosticMonth(); err != nil {
		return fmt.Errorf("diagnostic_date: %w", err)
	}
	if _, err := c.Pipeline.DomainEvents(); err != nil {
		return err
	}
	return nil
}

// BaseMonth returns the month whose values are set to 100
func (p PipelineConfig) BaseMonth() (time.Time, error) {
	return dataprocessing.ParseMonth(p.BaseDate)
}

// DiagnosticMonth returns the month printed after a run, or the zero time
// when none is configured
func (p PipelineConfig) DiagnosticMonth() (time.Time, error) {
	if strings.TrimSpace(p.DiagnosticDate) == "" {
		return time.Time{}, nil
	}
	return dataprocessing.ParseMonth(p.DiagnosticDate)
}

// DomainEvents converts the configured annotations
func (p PipelineConfig) DomainEvents() ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(p.Events))
	for i, e := range p.Events {
		date, err := dataprocessing.ParseMonth(e.Date)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events = append(events, domain.Event{Date: date, Label: e.Label, Anchor: e.Anchor})
	}
	return events, nil
}

// LoadOptions returns the loader settings for the input file
func (p PipelineConfig) LoadOptions() dataprocessing.LoadOptions {
	return dataprocessing.LoadOptions{
		HeaderRow: p.HeaderRow,
		Encoding:  p.Encoding,
	}
}

// CleanOptions returns the cleaner settings for the input file
func (p PipelineConfig) CleanOptions() dataprocessing.CleanOptions {
	return dataprocessing.CleanOptions{
		PeriodColumn:   p.PeriodColumn,
		MetadataMarker: p.MetadataMarker,
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			InputPath:      DefaultInputPath,
			OutputPath:     DefaultOutputPath,
			BaseDate:       DefaultBaseDate,
			Categories:     append([]string(nil), DefaultCategories...),
			DiagnosticDate: DefaultDiagnosticDate,
			HeaderRow:      DefaultHeaderRow,
			PeriodColumn:   DefaultPeriodColumn,
			MetadataMarker: DefaultMetadataMarker,
			Encoding:       dataprocessing.EncodingUTF8,
			Events: []EventConfig{
				{Date: "2020-02", Label: "COVID-19 爆發初期", Anchor: "總指數"},
				{Date: "2022-03", Label: "2022年2月24日 俄烏侵略戰爭爆發\n能源/運輸成本波動", Anchor: "四.交通及通訊類"},
			},
		},
		Render: RenderConfig{
			Width:      3300,
			Height:     1800,
			DPI:        300,
			Title:      DefaultChartTitle,
			YAxisLabel: "指數化數值",
			TickMonths: 6,
			BaseLine:   true,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: "logs/cpichart.log",
		},
	}
}
