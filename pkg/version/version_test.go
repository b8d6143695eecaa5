package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int // sign only
	}{
		{"2.9", "2.10", -1},
		{"2.10", "2.9", 1},
		{"11.2", Unknown, -1},
		{Unknown, "11.2", 1},
		{Unknown, Unknown, 0},
		{"11", "11.0", 0},
		{"11.0.0", "11", 0},
		{"10.9.1", "11.0", -1},
		{"2023.1", "11.3", 1},
		{"beta", "11.3", 1},
		{"beta", Unknown, -1},
		{"alpha", "beta", -1},
		{"11.x", "11.3", 1},
		{"", "1.0", 1},
		{"1..2", "1.2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestSort(t *testing.T) {
	versions := []string{Unknown, "11.3", "custom", "10.9.1", "2.10", "2.9", "11.1"}
	Sort(versions)
	assert.Equal(t, []string{"2.9", "2.10", "10.9.1", "11.1", "11.3", "custom", Unknown}, versions)
}

func TestToken(t *testing.T) {
	assert.Equal(t, "112", Token("11.2"))
	assert.Equal(t, "1091", Token(" 10.9.1 "))
	assert.Equal(t, "", Token("   "))
	assert.Equal(t, "", Token(""))
}

func TestNaturalCompare(t *testing.T) {
	assert.Negative(t, NaturalCompare("v9_1", "v10_9"))
	assert.Negative(t, NaturalCompare("v11_2", "v11_10"))
	assert.Positive(t, NaturalCompare("v11_3", "v11_2"))
	assert.Negative(t, NaturalCompare("v11", "v11_1"))
	assert.Zero(t, NaturalCompare("v11_1", "v11_1"))
	assert.Negative(t, NaturalCompare("Data Store", "notebook"))
}
