// Package config provides configuration management for the CPI chart
// pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Command line flags (applied by cmd/cpichart)
//  2. Environment variables, including those from a .env file
//  3. Configuration file (YAML)
//  4. Default values
//
// # Environment Variables
//
// All environment variables use the CPI_ prefix and the section name:
//
//	CPI_PIPELINE_INPUT_PATH=data/cpi_taiwan.csv
//	CPI_PIPELINE_BASE_DATE=2021-04
//	CPI_PIPELINE_CATEGORIES=總指數,一.食物類
//	CPI_RENDER_FONT_PATH=/usr/share/fonts/noto/NotoSansTC-Regular.ttf
//	CPI_LOGGING_LEVEL=debug
//	CPI_HISTORY_DB_PATH=data/history.db
//
// Chart events can only be set in the YAML file.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	cfg.Pipeline.BaseDate = "2022-01"
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
