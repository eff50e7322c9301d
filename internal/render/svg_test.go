package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/series"
)

func fixtureChart(t *testing.T) series.Chart {
	t.Helper()
	years := []int{2020, 2021, 2022, 2023, 2024, 2025}
	d := model.Dataset{
		Title: "Camden",
		History: model.History{
			Years:        []int{2020, 2021, 2022},
			HousePrice:   []float64{700000, 720000, 750000},
			AnnualIncome: []float64{40000, 41000, 42000},
		},
		Forecast: model.Forecast{
			Years: years,
			HousePrice: model.Band{
				Yhat:  []float64{701000, 719000, 751000, 770000, 790000, 810000},
				Lower: []float64{690000, 700000, 730000, 740000, 750000, 760000},
				Upper: []float64{710000, 740000, 770000, 800000, 830000, 860000},
			},
			AnnualIncome: model.Band{
				Yhat:  []float64{1, 2, 3, 4, 5, 6},
				Lower: []float64{1, 2, 3, 4, 5, 6},
				Upper: []float64{1, 2, 3, 4, 5, 6},
			},
		},
		Meta: model.Meta{YearsAhead: 3, Note: "Trend-based projection."},
	}
	c, err := series.ProjectDataset(d)
	require.NoError(t, err)
	return c
}

func parse(t *testing.T, b []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(b))
	return doc
}

func TestChart_Structure(t *testing.T) {
	b, err := Bytes(fixtureChart(t), model.HousePrice, Options{Selected: []int{2021, 2024}})
	require.NoError(t, err)
	doc := parse(t, b)

	root := doc.SelectElement("svg")
	require.NotNil(t, root)
	assert.Equal(t, "900", root.SelectAttrValue("width", ""))

	title := doc.FindElement("//text[@class='title']")
	require.NotNil(t, title)
	assert.Equal(t, "Camden: House price", title.Text())

	hist := doc.FindElements("//polyline[@class='historical']")
	require.Len(t, hist, 1)
	assert.Len(t, strings.Fields(hist[0].SelectAttrValue("points", "")), 3)
	assert.Empty(t, hist[0].SelectAttrValue("stroke-dasharray", ""))

	fc := doc.FindElements("//polyline[@class='forecast']")
	require.Len(t, fc, 1)
	assert.Len(t, strings.Fields(fc[0].SelectAttrValue("points", "")), 4, "central starts at the last observed year")
	assert.Equal(t, "6 4", fc[0].SelectAttrValue("stroke-dasharray", ""))

	band := doc.FindElements("//polygon[@class='band']")
	require.Len(t, band, 1)
	assert.Len(t, strings.Fields(band[0].SelectAttrValue("points", "")), 6, "three upper plus three lower vertices")

	assert.Len(t, doc.FindElements("//line[@class='selected']"), 2)
	assert.Len(t, doc.FindElements("//g[@class='x-axis']/text"), 6)

	note := doc.FindElement("//text[@class='note']")
	require.NotNil(t, note)
	assert.Equal(t, "Trend-based projection.", note.Text())
}

func TestChart_YAxisUsesCompactGBP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, fixtureChart(t), model.HousePrice, Options{}))
	doc := parse(t, buf.Bytes())

	labels := doc.FindElements("//g[@class='y-axis']/text")
	require.NotEmpty(t, labels)
	for _, l := range labels {
		assert.True(t, strings.HasPrefix(l.Text(), "£"), l.Text())
	}
}

func TestChart_EmptyChart(t *testing.T) {
	b, err := Bytes(series.Chart{Title: "Empty"}, model.AnnualIncome, Options{Width: 300, Height: 200})
	require.NoError(t, err)
	doc := parse(t, b)
	assert.Empty(t, doc.FindElements("//polyline"))
	assert.Empty(t, doc.FindElements("//g[@class='y-axis']"))
}

func TestSegments(t *testing.T) {
	a, b := 1.0, 2.0
	segs := segments([]*float64{&a, nil, &b, &a, nil})
	require.Len(t, segs, 2)
	assert.Len(t, segs[0], 1)
	assert.Len(t, segs[1], 2)
	assert.Equal(t, 2, segs[1][0].i)
}

func TestTickStep(t *testing.T) {
	assert.Equal(t, 1.0, tickStep(0))
	assert.Equal(t, 20000.0, tickStep(100000))
	assert.Equal(t, 50000.0, tickStep(170000))
}
