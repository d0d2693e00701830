package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type exportBase struct {
	ID uint `excel:"编号"`
}

type exportRow struct {
	exportBase
	Name     string    `excel:"姓名"`
	Note     *string   `excel:"备注"`
	Secret   string    `excel:"-"`
	At       time.Time `excel:"时间"`
	internal int
}

func TestExportToExcel(t *testing.T) {
	note := "n"
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	rows := []*exportRow{
		{exportBase: exportBase{ID: 1}, Name: "张三", Note: &note, Secret: "x", At: at},
		nil,
		{exportBase: exportBase{ID: 2}, Name: "李四"},
	}

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, ExportToExcel(f, "分配", rows))

	got, err := f.GetRows("分配")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"编号", "姓名", "备注", "时间"}, got[0])
	assert.Equal(t, []string{"1", "张三", "n", "2025-03-01 09:30"}, got[1])
	require.GreaterOrEqual(t, len(got[2]), 2)
	assert.Equal(t, []string{"2", "李四"}, got[2][:2])
}

func TestExportToExcelEmptyWritesHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, ExportToExcel(f, "", []exportRow{}))

	got, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "编号", got[0][0])
}

func TestExportToExcelRejectsNonStruct(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	assert.Error(t, ExportToExcel(f, "", 3))
	assert.Error(t, ExportToExcel(f, "", []int{1}))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, s := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(s)
		assert.Error(t, err, s)
	}
}

func TestPassword(t *testing.T) {
	hash, err := PasswordHash("secret123")
	require.NoError(t, err)
	assert.True(t, PasswordCompare("secret123", hash))
	assert.False(t, PasswordCompare("secret124", hash))
}
