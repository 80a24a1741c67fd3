package dataprocessing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	apperrors "twcpi/internal/errors"
)

func TestReadTable(t *testing.T) {
	table, err := ReadTable(strings.NewReader(cpiExport()), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"統計期", "總指數", "一.食物類", "", "指數基期"}, table.Header)
	// 1 annual + 16 monthly + 2 quarterly + 1 footnote
	assert.Len(t, table.Rows, 20)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Header))
	}
	assert.Equal(t, "109年", table.Rows[0][0])
	assert.Equal(t, "109年1月", table.Rows[1][0])
}

func TestReadTable_StripsBOM(t *testing.T) {
	content := "\xEF\xBB\xBF統計期,總指數\n109年1月,100\n"

	table, err := ReadTable(strings.NewReader(content), LoadOptions{HeaderRow: 1, Encoding: EncodingUTF8})
	require.NoError(t, err)
	assert.Equal(t, "統計期", table.Header[0])
}

func TestReadTable_Big5(t *testing.T) {
	utf8Content := "title\n\n統計期,總指數\n109年1月,100.5\n"
	var buf bytes.Buffer
	w := traditionalchinese.Big5.NewEncoder().Writer(&buf)
	_, err := w.Write([]byte(utf8Content))
	require.NoError(t, err)

	table, err := ReadTable(&buf, LoadOptions{HeaderRow: 2, Encoding: EncodingBig5})
	require.NoError(t, err)
	assert.Equal(t, []string{"統計期", "總指數"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"109年1月", "100.5"}, table.Rows[0])
}

func TestReadTable_RaggedRows(t *testing.T) {
	content := "統計期,總指數,一.食物類\n109年1月,100\n109年2月,101,99,extra\n,,\n"

	table, err := ReadTable(strings.NewReader(content), LoadOptions{HeaderRow: 1})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2, "blank row dropped")
	assert.Equal(t, []string{"109年1月", "100", ""}, table.Rows[0])
	assert.Equal(t, []string{"109年2月", "101", "99"}, table.Rows[1])
}

func TestReadTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    LoadOptions
		errType apperrors.ErrorType
	}{
		{
			name:    "header row beyond file",
			content: "only,one\n",
			opts:    DefaultLoadOptions(),
			errType: apperrors.ErrTypeSchema,
		},
		{
			name:    "zero header row",
			content: "a,b\n",
			opts:    LoadOptions{HeaderRow: 0},
			errType: apperrors.ErrTypeConfig,
		},
		{
			name:    "unknown encoding",
			content: "a,b\n",
			opts:    LoadOptions{HeaderRow: 1, Encoding: "latin-9"},
			errType: apperrors.ErrTypeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.content), tt.opts)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeTempCSV(t, cpiExport())

	table, err := LoadFile(path, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 20)

	_, err = LoadFile(path+".missing", DefaultLoadOptions())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}
