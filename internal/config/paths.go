package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved locations of every file a run reads or writes.
// Relative paths from the configuration are resolved against the working
// directory.
type Paths struct {
	Input     string
	Output    string
	AuditCSV  string
	AuditXLSX string
	LogFile   string
	Metrics   string
	Traces    string
	History   string
}

// ResolvePaths returns the absolute form of each configured path. Empty
// paths stay empty, as does the log file when logging goes to the console
// only.
func (c *Config) ResolvePaths() (*Paths, error) {
	p := &Paths{}
	logFile := ""
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		logFile = c.Logging.FilePath
	}
	targets := []struct {
		src string
		dst *string
	}{
		{c.Pipeline.InputPath, &p.Input},
		{c.Pipeline.OutputPath, &p.Output},
		{c.Pipeline.AuditCSVPath, &p.AuditCSV},
		{c.Pipeline.AuditXLSXPath, &p.AuditXLSX},
		{logFile, &p.LogFile},
		{c.Metrics.TextfilePath, &p.Metrics},
		{c.Tracing.FilePath, &p.Traces},
		{c.History.DBPath, &p.History},
	}
	for _, t := range targets {
		if t.src == "" {
			continue
		}
		abs, err := filepath.Abs(t.src)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", t.src, err)
		}
		*t.dst = abs
	}
	return p, nil
}

// OutputFiles lists the files written by a run
func (p *Paths) OutputFiles() []string {
	var files []string
	for _, f := range []string{p.Output, p.AuditCSV, p.AuditXLSX, p.Metrics, p.Traces} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// EnsureDirectories creates the parent directory of every output file
func (p *Paths) EnsureDirectories() error {
	files := p.OutputFiles()
	for _, f := range []string{p.LogFile, p.History} {
		if f != "" {
			files = append(files, f)
		}
	}
	for _, f := range files {
		if err := EnsureParentDir(f); err != nil {
			return err
		}
	}
	return nil
}

// EnsureParentDir creates the directory that will hold path
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
