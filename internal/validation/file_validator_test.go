package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twcpi/internal/errors"
	"twcpi/internal/shared/testutil"
)

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "cpi.csv")
	require.NoError(t, os.WriteFile(good, []byte("統計期\n"), 0644))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	wrongExt := filepath.Join(dir, "cpi.xlsx")
	require.NoError(t, os.WriteFile(wrongExt, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.csv"), 0755))

	tests := []struct {
		name    string
		path    string
		errType apperrors.ErrorType
	}{
		{name: "valid", path: good},
		{name: "missing", path: filepath.Join(dir, "absent.csv"), errType: apperrors.ErrTypeStorage},
		{name: "empty", path: empty, errType: apperrors.ErrTypeStorage},
		{name: "directory", path: filepath.Join(dir, "folder.csv"), errType: apperrors.ErrTypeStorage},
		{name: "wrong extension", path: wrongExt, errType: apperrors.ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			err := NewFileValidator(logger).ValidateCSVFile(tt.path)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file removed")
	testutil.AssertNoErrors(t, handler)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	err = v.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()

	assert.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "images", "chart.png"), ".png"))
	assert.DirExists(t, filepath.Join(dir, "images"))

	err := v.ValidateOutputFile(filepath.Join(dir, "chart.jpg"), ".png")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	err = v.ValidateOutputFile(filepath.Join(dir, "images"), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	assert.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "audit.CSV"), ".csv"))
}
