package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCompanyRows(t *testing.T) {
	rows := [][]string{
		{"Acme Coffee", "Seoul", "1 Main St", "02-123-4567"},
		{"acme coffee", "seoul"},
		{"", "Busan"},
		{"Acme Coffee", "Busan", "", "", "https://acme.example", "  roastery  "},
		{"Acme-Coffee", "Seoul"},
	}

	companies := parseCompanyRows(rows)
	require.Len(t, companies, 3)

	assert.Equal(t, "seoul-acme-coffee", companies[0].Slug)
	assert.Equal(t, "02-123-4567", companies[0].PhoneNumber)
	assert.True(t, companies[0].IsActive)

	assert.Equal(t, "busan-acme-coffee", companies[1].Slug)
	assert.Equal(t, "roastery", companies[1].Description)

	// 같은 slug가 나오면 번호를 붙임
	assert.Equal(t, "seoul-acme-coffee-2", companies[2].Slug)
}

func TestReadCompaniesFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"회사명", "도시", "주소"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Blue Bottle", "Seoul", "Seongsu"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "companies.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	companies, err := readCompaniesFromXLSX(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Blue Bottle", companies[0].Name)
	assert.Equal(t, "Seongsu", companies[0].Address)
}
