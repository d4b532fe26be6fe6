package market

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeriesValidate(t *testing.T) {
	ok := Series{
		Timestamps: []int64{1000, 2000, 3000},
		Open:       []float64{1, 2, 3},
		High:       []float64{1, 2, 3},
		Low:        []float64{1, 2, 3},
		Close:      []float64{1, 2, 3},
		Volume:     []int64{10, 20, 30},
	}
	require.NoError(t, ok.Validate())
	require.Equal(t, 3, ok.Len())

	misaligned := ok
	misaligned.Volume = []int64{10}
	require.Error(t, misaligned.Validate())

	unordered := ok
	unordered.Timestamps = []int64{1000, 1000, 3000}
	require.Error(t, unordered.Validate())

	var empty Series
	require.NoError(t, empty.Validate())
}
