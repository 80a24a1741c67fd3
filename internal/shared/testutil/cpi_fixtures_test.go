package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPIExport(t *testing.T) {
	content := CPIExport([]string{"總指數", "一.食物類", "三.居住類"}, 16)
	lines := strings.Split(strings.TrimSpace(content), "\n")

	// 2 title + header + annual + 16 monthly + 2 quarterly + footnote
	require.Len(t, lines, 23)
	assert.Equal(t, "統計期,總指數,一.食物類,三.居住類,,指數基期", lines[2])
	assert.Equal(t, "109年1月,95,90,92,,110年=100", lines[4])
	assert.True(t, strings.HasPrefix(lines[7], "109年第1季,"))
	assert.True(t, strings.HasPrefix(lines[21], "110年4月,110,"))

	for _, line := range lines {
		assert.Equal(t, 5, strings.Count(line, ","), line)
	}
}

func TestCPIValue(t *testing.T) {
	assert.Equal(t, 110.0, CPIValue(0, 15))
	assert.Equal(t, 97.5, CPIValue(1, 15))
	assert.Equal(t, 99.5, CPIValue(2, 15))
}

func TestWriteCPIExport(t *testing.T) {
	path := WriteCPIExport(t, []string{"總指數"}, 3)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CPIExport([]string{"總指數"}, 3), string(content))
}
