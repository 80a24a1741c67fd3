package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twcpi/internal/storage"
	"twcpi/pkg/contracts/domain"
)

func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	repo, err := storage.NewHistoryRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	base := time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	rows := []domain.RebasedObservation{
		{
			LongObservation: domain.LongObservation{Date: base.AddDate(0, -1, 0), Category: "總指數", Value: 109},
			BaseValue:       110,
			Index100:        109.0 / 110 * 100,
		},
		{
			LongObservation: domain.LongObservation{Date: base, Category: "總指數", Value: 110},
			BaseValue:       110,
			Index100:        100,
		},
	}
	require.NoError(t, repo.SaveRun(ctx, storage.RunRecord{
		RunID:       "ok-run",
		StartedAt:   time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC),
		Status:      storage.StatusSuccess,
		InputPath:   "cpi.csv",
		OutputPath:  "cpi.png",
		BaseDate:    base,
		Categories:  []string{"總指數"},
		RebasedRows: len(rows),
	}, rows))
	require.NoError(t, repo.SaveRun(ctx, storage.RunRecord{
		RunID:     "bad-run",
		StartedAt: time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
		Status:    storage.StatusError,
		Error:     "SCHEMA: period column 統計期 not found",
		BaseDate:  base,
	}, nil))
	return path
}

func TestRun_ListRuns(t *testing.T) {
	db := seedHistory(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-db", db}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "run_id", strings.Fields(lines[0])[0])
	assert.Equal(t, "bad-run", strings.Fields(lines[1])[0], "newest first")
	assert.Contains(t, lines[2], "ok-run")
	assert.Contains(t, lines[2], "2021-04")

	stdout.Reset()
	code = run(context.Background(), []string{"-db", db, "-limit", "1"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout.String()), "\n"), 2)
}

func TestRun_PrintRun(t *testing.T) {
	db := seedHistory(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "base month by default",
			args: []string{"-run", "ok-run"},
			want: []string{"== 2021-04 ==", "100.0000"},
		},
		{
			name: "explicit ROC month",
			args: []string{"-run", "ok-run", "-date", "110年3月"},
			want: []string{"== 2021-03 ==", "99.0909"},
		},
		{
			name: "failed run",
			args: []string{"-run", "bad-run"},
			want: []string{"run bad-run failed: SCHEMA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), append([]string{"-db", db}, tt.args...), &stdout, &stderr)
			require.Equal(t, 0, code, stderr.String())
			for _, w := range tt.want {
				assert.Contains(t, stdout.String(), w)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	db := seedHistory(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown run", args: []string{"-db", db, "-run", "nope"}},
		{name: "bad date", args: []string{"-db", db, "-run", "ok-run", "-date", "March"}},
		{name: "absent database", args: []string{"-db", filepath.Join(t.TempDir(), "absent.db")}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(context.Background(), tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}
