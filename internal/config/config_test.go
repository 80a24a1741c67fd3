package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twcpi/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultInputPath, cfg.Pipeline.InputPath)
				assert.Equal(t, DefaultOutputPath, cfg.Pipeline.OutputPath)
				assert.Equal(t, DefaultBaseDate, cfg.Pipeline.BaseDate)
				assert.Equal(t, DefaultCategories, cfg.Pipeline.Categories)
				assert.Equal(t, 3, cfg.Pipeline.HeaderRow)
				assert.Len(t, cfg.Pipeline.Events, 2)
				assert.Equal(t, 300.0, cfg.Render.DPI)
				assert.True(t, cfg.Render.BaseLine)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Empty(t, cfg.History.DBPath, "history is off by default")
			},
		},
		{
			name: "yaml file overrides defaults",
			file: `
pipeline:
  base_date: "2022-01"
  categories: ["總指數", "五.醫藥保健類"]
  events:
    - date: "2021-05"
      label: "三級警戒"
      anchor: "總指數"
render:
  dpi: 150
  base_line: false
history:
  db_path: "data/history.db"
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "2022-01", cfg.Pipeline.BaseDate)
				assert.Equal(t, []string{"總指數", "五.醫藥保健類"}, cfg.Pipeline.Categories)
				require.Len(t, cfg.Pipeline.Events, 1)
				assert.Equal(t, "三級警戒", cfg.Pipeline.Events[0].Label)
				assert.Equal(t, 150.0, cfg.Render.DPI)
				assert.False(t, cfg.Render.BaseLine)
				assert.Equal(t, "data/history.db", cfg.History.DBPath)
				// untouched keys keep their defaults
				assert.Equal(t, DefaultInputPath, cfg.Pipeline.InputPath)
				assert.Equal(t, 3300, cfg.Render.Width)
			},
		},
		{
			name: "environment overrides yaml",
			file: `
pipeline:
  base_date: "2022-01"
  input_path: "from-file.csv"
`,
			env: map[string]string{
				"CPI_PIPELINE_BASE_DATE":  "110年4月",
				"CPI_PIPELINE_CATEGORIES": "總指數,一.食物類",
				"CPI_LOGGING_LEVEL":       "debug",
				"CPI_RENDER_TICK_MONTHS":  "12",
				"CPI_HISTORY_DB_PATH":     "runs.db",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "110年4月", cfg.Pipeline.BaseDate)
				assert.Equal(t, "from-file.csv", cfg.Pipeline.InputPath)
				assert.Equal(t, []string{"總指數", "一.食物類"}, cfg.Pipeline.Categories)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 12, cfg.Render.TickMonths)
				assert.Equal(t, "runs.db", cfg.History.DBPath)
				assert.Len(t, cfg.Pipeline.Events, 2, "events only come from yaml")
			},
		},
		{
			name:    "malformed yaml",
			file:    "pipeline: [unterminated",
			wantErr: true,
		},
		{
			name:    "invalid env value",
			env:     map[string]string{"CPI_PIPELINE_HEADER_ROW": "three"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "roc base date", modify: func(c *Config) { c.Pipeline.BaseDate = "110年4月" }},
		{name: "upper case encoding", modify: func(c *Config) { c.Pipeline.Encoding = " BIG5 " }},
		{name: "no diagnostic date", modify: func(c *Config) { c.Pipeline.DiagnosticDate = "" }},
		{name: "bad base date", modify: func(c *Config) { c.Pipeline.BaseDate = "April 2021" }, wantErr: true},
		{name: "bad diagnostic date", modify: func(c *Config) { c.Pipeline.DiagnosticDate = "2020-13" }, wantErr: true},
		{name: "no categories", modify: func(c *Config) { c.Pipeline.Categories = nil }, wantErr: true},
		{name: "blank category", modify: func(c *Config) { c.Pipeline.Categories = []string{"總指數", ""} }, wantErr: true},
		{name: "unknown encoding", modify: func(c *Config) { c.Pipeline.Encoding = "shift_jis" }, wantErr: true},
		{name: "header row zero", modify: func(c *Config) { c.Pipeline.HeaderRow = 0 }, wantErr: true},
		{name: "bad event date", modify: func(c *Config) { c.Pipeline.Events[0].Date = "soon" }, wantErr: true},
		{name: "event without anchor", modify: func(c *Config) { c.Pipeline.Events[1].Anchor = "" }, wantErr: true},
		{name: "zero dpi", modify: func(c *Config) { c.Render.DPI = 0 }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "file logging without path", modify: func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_NormalizesEncoding(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Encoding = " Big5 "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "big5", cfg.Pipeline.Encoding)
}

func TestPipelineConfig_Months(t *testing.T) {
	cfg := Default()

	base, err := cfg.Pipeline.BaseMonth()
	require.NoError(t, err)
	assert.True(t, time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC).Equal(base))

	diag, err := cfg.Pipeline.DiagnosticMonth()
	require.NoError(t, err)
	assert.True(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Equal(diag))

	cfg.Pipeline.DiagnosticDate = " "
	diag, err = cfg.Pipeline.DiagnosticMonth()
	require.NoError(t, err)
	assert.True(t, diag.IsZero())
}

func TestPipelineConfig_DomainEvents(t *testing.T) {
	events, err := Default().Pipeline.DomainEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.True(t, time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC).Equal(events[0].Date))
	assert.Equal(t, "總指數", events[0].Anchor)
	assert.Equal(t, "四.交通及通訊類", events[1].Anchor)
	assert.Contains(t, events[1].Label, "\n")
}

func TestPipelineConfig_Options(t *testing.T) {
	p := Default().Pipeline
	p.Encoding = "big5"

	load := p.LoadOptions()
	assert.Equal(t, 3, load.HeaderRow)
	assert.Equal(t, "big5", load.Encoding)

	clean := p.CleanOptions()
	assert.Equal(t, DefaultPeriodColumn, clean.PeriodColumn)
	assert.Equal(t, DefaultMetadataMarker, clean.MetadataMarker)
}

func TestDefault_IndependentCopies(t *testing.T) {
	a := Default()
	a.Pipeline.Categories[0] = "changed"
	b := Default()
	assert.Equal(t, "總指數", b.Pipeline.Categories[0])
}
