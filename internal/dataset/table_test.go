package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendPadsShortRows(t *testing.T) {
	tbl := New("sales", []string{"A", "B", "C"})

	require.NoError(t, tbl.Append(Row{"x"}))
	assert.Equal(t, Row{"x", nil, nil}, tbl.Rows[0])

	err := tbl.Append(Row{"1", "2", "3", "4"})
	assert.Error(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_ResolveAlias(t *testing.T) {
	tbl := New("sales", []string{"Date", "UnitsSold"})

	assert.Equal(t, 1, tbl.Resolve(ColUnitsSold))
	assert.Equal(t, -1, tbl.Resolve(ColRevenue))

	tbl = New("sales", []string{"UnitsSold", "Units Sold"})
	assert.Equal(t, 1, tbl.Resolve(ColUnitsSold), "canonical name wins over alias")
}

func TestTable_MapDoesNotTouchInput(t *testing.T) {
	tbl := New("products", []string{"Product"})
	require.NoError(t, tbl.Append(Row{" A "}))

	out, err := tbl.Map("Product", func(_ int, v Value) (Value, error) {
		return "A", nil
	})
	require.NoError(t, err)

	assert.Equal(t, " A ", tbl.Rows[0][0])
	assert.Equal(t, "A", out.Rows[0][0])

	_, err = tbl.Map("Missing", func(_ int, v Value) (Value, error) { return v, nil })
	assert.Error(t, err)
}

func TestTable_ColumnIndexFollowsColumnEdits(t *testing.T) {
	tbl := New("sales", []string{"Date", "Revenue", "Revenue"})
	assert.Equal(t, 1, tbl.ColumnIndex(ColRevenue), "first duplicate wins")

	tbl.Columns[1] = "Revenue_x"
	assert.Equal(t, 2, tbl.ColumnIndex(ColRevenue))
	assert.Equal(t, 1, tbl.ColumnIndex("Revenue_x"))
	assert.Equal(t, -1, tbl.ColumnIndex("Units Sold"))
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, -1, tbl.ColumnIndex("x"))
	assert.Nil(t, tbl.Clone())
}

func TestAsFloat(t *testing.T) {
	tests := []struct {
		name    string
		in      Value
		want    float64
		wantOK  bool
		wantErr bool
	}{
		{"nil", nil, 0, false, false},
		{"float", 2.5, 2.5, true, false},
		{"nan", math.NaN(), 0, false, false},
		{"string", "1,250.50", 1250.5, true, false},
		{"blank string", "  ", 0, false, false},
		{"bad string", "abc", 0, false, true},
		{"bool", true, 1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := AsFloat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsString(t *testing.T) {
	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "20", AsString(20.0))
	assert.Equal(t, "2024-01-05", AsString(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-05T10:30:00Z", AsString(time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)))
	assert.True(t, IsNull(math.NaN()))
	assert.False(t, IsNull(""))
}
