package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrossWatch/internal/domain/models"
)

func TestComputeEMAAdjusted(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		span int
		want []float64
	}{
		// alpha = 2/3, decay = 1/3
		{"span2", []float64{1, 2, 3}, 2, []float64{1, 1.75, 2.6153846}},
		// alpha = 1/2, decay = 1/2
		{"span3", []float64{1, 2, 3}, 3, []float64{1, 1.6666667, 2.4285714}},
		{"span1 tracks input", []float64{4, 9, 1}, 1, []float64{4, 9, 1}},
		{"constant series", []float64{5, 5, 5, 5}, 10, []float64{5, 5, 5, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeEMA(tc.in, tc.span)
			require.Len(t, got, len(tc.in))
			assert.InDeltaSlice(t, tc.want, got, 1e-6)
		})
	}
}

func TestComputeEMAMatchesWeightedSum(t *testing.T) {
	closes := []float64{10, 11.5, 9.75, 12, 13.25, 12.5, 14}
	span := 4
	decay := 1 - Alpha(span)
	got := ComputeEMA(closes, span)
	for tt := range closes {
		num, den, w := 0.0, 0.0, 1.0
		for i := 0; i <= tt; i++ {
			num += w * closes[tt-i]
			den += w
			w *= decay
		}
		assert.InDelta(t, num/den, got[tt], 1e-9, "index %d", tt)
	}
}

func TestComputeEMAEdgeCases(t *testing.T) {
	assert.Nil(t, ComputeEMA([]float64{1, 2}, 0))
	assert.Empty(t, ComputeEMA(nil, 5))
}

func TestDetectCrossover(t *testing.T) {
	assert.Equal(t, models.SignalBullish, DetectCrossover(1, 2, 3, 2))
	assert.Equal(t, models.SignalBearish, DetectCrossover(3, 2, 1, 2))

	none := [][4]float64{
		{2, 2, 3, 2}, // equal before
		{1, 2, 2, 2}, // equal after
		{2, 2, 2, 2},
		{1, 2, 1.5, 2}, // stays below
		{3, 2, 4, 2},   // stays above
		{3, 2, 2, 2},
	}
	for _, c := range none {
		assert.Equal(t, models.SignalNone, DetectCrossover(c[0], c[1], c[2], c[3]), "%v", c)
	}
}

func TestDetectCrossoverOnlyStrictFlips(t *testing.T) {
	vals := []float64{1, 2, 3}
	for _, pf := range vals {
		for _, ps := range vals {
			for _, cf := range vals {
				for _, cs := range vals {
					got := DetectCrossover(pf, ps, cf, cs)
					switch {
					case pf < ps && cf > cs:
						assert.Equal(t, models.SignalBullish, got)
					case pf > ps && cf < cs:
						assert.Equal(t, models.SignalBearish, got)
					default:
						assert.Equal(t, models.SignalNone, got)
					}
				}
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	closes := make([]float64, 0, 40)
	for i := 0; i < 39; i++ {
		closes = append(closes, 100-float64(i)*0.5)
	}
	closes = append(closes, 200)

	res := Evaluate(closes, 5, 20)
	assert.Equal(t, models.SignalBullish, res.Signal)
	assert.Greater(t, res.FastEMA, res.SlowEMA)

	assert.Equal(t, models.SignalNone, Evaluate(closes[:1], 5, 20).Signal)
	assert.Equal(t, models.SignalNone, Evaluate(closes, 0, 20).Signal)
}
