package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shopmanager/shopmanager/internal/shared"
)

var testAliases = Aliases{
	"itemcode": "itemCode",
	"code":     "itemCode",
	"itemname": "itemName",
	"price":    "sellingPrice",
}

func TestFoldHeader(t *testing.T) {
	cases := map[string]string{
		"Item Code":  "itemcode",
		"item_code":  "itemcode",
		"ITEM-CODE":  "itemcode",
		" Item.Code": "itemcode",
	}
	for in, want := range cases {
		assert.Equal(t, want, FoldHeader(in), in)
	}
}

func TestReadCSV(t *testing.T) {
	data := "Item Code,Item Name,Price,Notes\nA1,Cable,\"Rs. 1,250.50\",x\n,,,\nA2,Plug,300,\n"

	rows, err := ReadCSV(strings.NewReader(data), testAliases)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "A1", rows[0].Get("itemCode"))
	assert.Equal(t, "Cable", rows[0].Get("itemName"))
	assert.Equal(t, "x", rows[0].Get("notes"))
	assert.Equal(t, 3, rows[1].Line)

	price, err := ParseAmount(rows[0].Get("sellingPrice"))
	require.NoError(t, err)
	assert.InDelta(t, 1250.50, price, 1e-9)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CODE", "item_name", "Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"X9", "Mouse", 450}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := Read("stock.XLSX", &buf, testAliases)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "X9", rows[0].Get("itemCode"))
	assert.Equal(t, "Mouse", rows[0].Get("itemName"))
	assert.Equal(t, "450", rows[0].Get("sellingPrice"))
}

func TestReadRejectsUnknownExtensionAndEmptyFiles(t *testing.T) {
	_, err := Read("stock.pdf", strings.NewReader("x"), testAliases)
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, err = ReadCSV(strings.NewReader("Item Code,Item Name\n"), testAliases)
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]float64{
		"":          0,
		"Rs.100":    100,
		"rs 2,000":  2000,
		"RS. 12.5":  12.5,
		"  75.25  ": 75.25,
	} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, err := ParseAmount("ten")
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestParseCount(t *testing.T) {
	v, err := ParseCount("1,200")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	v, err = ParseCount("7.0")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = ParseCount("2.5")
	require.True(t, errors.Is(err, shared.ErrValidation))
}
