package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractText(t *testing.T) {
	path := writeFixture(t, "notes.txt", "  \n\nDepreciation schedule for FY2025.\n\n  ")

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Depreciation schedule for FY2025.", text)
}

func TestExtractMarkdownStripsFormatting(t *testing.T) {
	md := "# Tax Guide\n\nFile your **quarterly** returns with [the portal](https://example.com).\n\n- keep receipts\n- track mileage\n"
	path := writeFixture(t, "guide.md", md)

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Tax Guide")
	assert.Contains(t, text, "File your quarterly returns with the portal.")
	assert.Contains(t, text, "keep receipts")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "https://example.com")
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Account"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Balance"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Cash"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 1200))
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Contains(t, text, "--- Sheet: Sheet1 ---")
	assert.Contains(t, text, "Account\tBalance")
	assert.Contains(t, text, "Cash\t1200")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := writeFixture(t, "image.png", "not really an image")

	_, err := Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format: .png")
}

func TestExtractPDFMissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error extracting text from PDF")
}

func TestExtractCaseInsensitiveExtension(t *testing.T) {
	path := writeFixture(t, "NOTES.TXT", "uppercase extension")

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "uppercase extension", text)
}
