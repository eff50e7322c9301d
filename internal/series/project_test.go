package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/londongap/internal/model"
)

func yearsRange(from, to int) []int {
	var ys []int
	for y := from; y <= to; y++ {
		ys = append(ys, y)
	}
	return ys
}

func fill(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// 2018..2024 observed, 2018..2030 forecast.
func londonFixture() (TimeSeries, ForecastSeries) {
	hist := TimeSeries{Years: yearsRange(2018, 2024), Values: fill(7, 480000, 10000)}
	fy := yearsRange(2018, 2030)
	return hist, ForecastSeries{
		Years:   fy,
		Central: fill(len(fy), 481000, 10000),
		Lower:   fill(len(fy), 470000, 9000),
		Upper:   fill(len(fy), 490000, 11000),
	}
}

func TestProject_LondonScenario(t *testing.T) {
	hist, fc := londonFixture()

	cs, err := Project(hist, fc)
	require.NoError(t, err)
	require.Len(t, cs.Historical, 13)
	require.Len(t, cs.Central, 13)
	require.Len(t, cs.Upper, 13)
	require.Len(t, cs.Lower, 13)

	for i, y := range fc.Years {
		if y <= 2024 {
			require.NotNil(t, cs.Historical[i], "historical %d", y)
			assert.Equal(t, hist.Values[i], *cs.Historical[i])
		} else {
			assert.Nil(t, cs.Historical[i], "historical %d", y)
		}

		if y < 2024 {
			assert.Nil(t, cs.Central[i], "central %d", y)
		} else {
			require.NotNil(t, cs.Central[i], "central %d", y)
			assert.Equal(t, fc.Central[i], *cs.Central[i])
		}

		if y <= 2024 {
			assert.Nil(t, cs.Upper[i], "upper %d", y)
			assert.Nil(t, cs.Lower[i], "lower %d", y)
		} else {
			require.NotNil(t, cs.Upper[i])
			require.NotNil(t, cs.Lower[i])
			assert.Equal(t, fc.Upper[i], *cs.Upper[i])
			assert.Equal(t, fc.Lower[i], *cs.Lower[i])
		}
	}
}

func TestProject_LinesJoinAtLastObservedYear(t *testing.T) {
	hist, fc := londonFixture()
	cs, err := Project(hist, fc)
	require.NoError(t, err)

	idx := 6 // 2024
	assert.NotNil(t, cs.Historical[idx])
	assert.NotNil(t, cs.Central[idx])
	assert.Nil(t, cs.Upper[idx])
}

func TestProject_ForecastStartsAfterHistory(t *testing.T) {
	hist := TimeSeries{Years: []int{2020, 2021}, Values: []float64{1, 2}}
	fc := ForecastSeries{
		Years:   []int{2022, 2023},
		Central: []float64{3, 4},
		Lower:   []float64{2, 3},
		Upper:   []float64{4, 5},
	}

	cs, err := Project(hist, fc)
	require.NoError(t, err)
	assert.Equal(t, []*float64{nil, nil}, cs.Historical)
	assert.NotNil(t, cs.Central[0])
	assert.NotNil(t, cs.Upper[0])
}

func TestProject_Malformed(t *testing.T) {
	good := ForecastSeries{Years: []int{2020}, Central: []float64{1}, Lower: []float64{1}, Upper: []float64{1}}

	tests := []struct {
		name string
		hist TimeSeries
		fc   ForecastSeries
	}{
		{"empty history", TimeSeries{}, good},
		{"history length mismatch", TimeSeries{Years: []int{2020, 2021}, Values: []float64{1}}, good},
		{"history unordered", TimeSeries{Years: []int{2021, 2020}, Values: []float64{1, 2}}, good},
		{"history duplicate year", TimeSeries{Years: []int{2020, 2020}, Values: []float64{1, 2}}, good},
		{"forecast band short", TimeSeries{Years: []int{2020}, Values: []float64{1}},
			ForecastSeries{Years: []int{2020, 2021}, Central: []float64{1, 2}, Lower: []float64{1}, Upper: []float64{1, 2}}},
		{"forecast unordered", TimeSeries{Years: []int{2020}, Values: []float64{1}},
			ForecastSeries{Years: []int{2021, 2020}, Central: []float64{1, 2}, Lower: []float64{1, 2}, Upper: []float64{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.hist, tt.fc)
			assert.ErrorIs(t, err, ErrMalformedSeries)
		})
	}
}

func testDataset() model.Dataset {
	hist, fc := londonFixture()
	return model.Dataset{
		Title: "London overview",
		History: model.History{
			Years:        hist.Years,
			HousePrice:   hist.Values,
			AnnualIncome: fill(7, 40000, 1000),
		},
		Forecast: model.Forecast{
			Years:        fc.Years,
			HousePrice:   model.Band{Yhat: fc.Central, Lower: fc.Lower, Upper: fc.Upper},
			AnnualIncome: model.Band{Yhat: fill(13, 40100, 1000), Lower: fill(13, 39000, 900), Upper: fill(13, 41000, 1100)},
		},
		Meta: model.Meta{YearsAhead: 6, Note: "Forecasts are trend-based."},
	}
}

func TestProjectDataset(t *testing.T) {
	c, err := ProjectDataset(testDataset())
	require.NoError(t, err)

	assert.Equal(t, "London overview", c.Title)
	assert.Equal(t, yearsRange(2018, 2030), c.Labels)
	assert.Equal(t, 2024, c.LastHistoricalYear)
	assert.Equal(t, 6, c.YearsAhead)
	assert.Equal(t, "Forecasts are trend-based.", c.Note)

	inc := c.Metric(model.AnnualIncome)
	require.NotNil(t, inc.Historical[0])
	assert.Equal(t, 40000.0, *inc.Historical[0])
	require.NotNil(t, inc.Upper[12])
	assert.Equal(t, 41000.0+12*1100, *inc.Upper[12])

	assert.True(t, c.IsProjected(2025))
	assert.False(t, c.IsProjected(2024))
}

func TestProjectDataset_WrapsMetricError(t *testing.T) {
	d := testDataset()
	d.History.AnnualIncome = d.History.AnnualIncome[:3]

	_, err := ProjectDataset(d)
	require.ErrorIs(t, err, ErrMalformedSeries)
	assert.Contains(t, err.Error(), "annual_income")
}

func TestChartSeries_Shown(t *testing.T) {
	c, err := ProjectDataset(testDataset())
	require.NoError(t, err)

	hp := c.HousePrice
	require.NotNil(t, hp.Shown(0))
	assert.Equal(t, 480000.0, *hp.Shown(0))
	require.NotNil(t, hp.Shown(12))
	assert.Equal(t, 481000.0+12*10000, *hp.Shown(12))
	assert.Nil(t, hp.Shown(13))
	assert.Nil(t, hp.Shown(-1))
}

func TestRatios(t *testing.T) {
	c, err := ProjectDataset(testDataset())
	require.NoError(t, err)

	rs := Ratios(c)
	require.Len(t, rs, 13)
	assert.Equal(t, 2018, rs[0].Year)
	assert.InDelta(t, 12.0, rs[0].Ratio, 1e-9)
	assert.False(t, rs[0].Projected)
	assert.True(t, rs[12].Projected)

	latest, ok := Latest(rs)
	require.True(t, ok)
	assert.Equal(t, 2024, latest.Year)
	assert.InDelta(t, 540000.0/46000.0, latest.Ratio, 1e-9)
}

func TestRatios_SkipsZeroIncome(t *testing.T) {
	zero, one := 0.0, 100.0
	c := Chart{
		Labels:       []int{2020, 2021},
		HousePrice:   ChartSeries{Historical: []*float64{&one, &one}, Central: []*float64{nil, nil}},
		AnnualIncome: ChartSeries{Historical: []*float64{&zero, nil}, Central: []*float64{nil, nil}},
	}
	assert.Empty(t, Ratios(c))

	_, ok := Latest(nil)
	assert.False(t, ok)
}

func TestProject_EstimateCoversWholeAxis(t *testing.T) {
	hist, fc := londonFixture()

	cs, err := Project(hist, fc)
	require.NoError(t, err)
	require.Len(t, cs.Estimate, len(fc.Years))
	for i := range fc.Years {
		require.NotNil(t, cs.Estimate[i])
		assert.Equal(t, fc.Central[i], *cs.Estimate[i])
	}
}
