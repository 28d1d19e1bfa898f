package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oludev/solar-market-scraper/internal/models"
)

func TestCSVSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)

	item := models.NewItem("jumia")
	item.Name = "SunKing 200W Panel"
	item.Brand = "SunKing"
	item.PriceRaw = "₦45,000"
	item.NormalizePrice()
	item.ProductURL = "https://example.com/panel"
	item.ImageURLs = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}
	item.Specs.Set("Watt", "200 W")
	item.Specs.Set("Type", "Monocrystalline")

	runAt := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	file, err := sink.Write([]*models.Item{item}, "jumia", runAt)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jumia_20260115_093000.csv"), file)

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "SunKing 200W Panel", row[0])
	assert.Equal(t, "45000", row[4])
	assert.Equal(t, "NGN", row[5])
	assert.Equal(t, `["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]`, row[8])
	assert.Equal(t, `{"Watt":"200 W","Type":"Monocrystalline"}`, row[10])
	assert.Equal(t, "jumia", row[18])
}

func TestCSVSinkWriteEmpty(t *testing.T) {
	sink := NewCSVSink(t.TempDir())
	_, err := sink.Write(nil, "jumia", time.Now())
	assert.Error(t, err)
}

func TestCSVSinkCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewCSVSink(dir)

	item := models.NewItem("jiji")
	item.Name = "Battery"

	file, err := sink.Write([]*models.Item{item}, "jiji", time.Now())
	require.NoError(t, err)
	assert.FileExists(t, file)
}
