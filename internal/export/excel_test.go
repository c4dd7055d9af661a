package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Huron Consulting Group", rows[1][0])
	assert.Equal(t, "HURN", rows[1][1])
	assert.Equal(t, "8", rows[1][7])
	assert.Equal(t, "Acme, Inc.", rows[2][0])
}

func TestWriteExcelColumnWidths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	// name column sized to its longest value plus padding
	width, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("Huron Consulting Group")+2), width, 0.01)

	// every column stays within the cap
	for i := range Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		require.NoError(t, err)
		width, err := f.GetColWidth(SheetName, col)
		require.NoError(t, err)
		assert.LessOrEqual(t, width, float64(maxColumnWidth)+0.01)
	}
}

func TestWriteExcelEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Columns, rows[0])
}
