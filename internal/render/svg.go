// Package render draws projected charts as standalone SVG documents.
package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/money"
	"github.com/theirongolddev/londongap/internal/series"
)

// Options controls the drawing. Zero values take defaults.
type Options struct {
	Width    int
	Height   int
	Selected []int // years to mark with a vertical rule
}

const (
	defaultWidth  = 900
	defaultHeight = 420

	padLeft   = 80.0
	padRight  = 20.0
	padTop    = 40.0
	padBottom = 60.0

	colorHistorical = "#4385BE"
	colorForecast   = "#8B7EC8"
	colorBand       = "#8B7EC8"
	colorAxis       = "#575653"
	colorSelected   = "#D0A215"
)

// frame maps data coordinates to SVG coordinates.
type frame struct {
	x0, y0, w, h float64
	n            int
	lo, hi       float64
}

func (f frame) x(i int) float64 {
	if f.n <= 1 {
		return f.x0 + f.w/2
	}
	return f.x0 + float64(i)*f.w/float64(f.n-1)
}

func (f frame) y(v float64) float64 {
	if f.hi == f.lo {
		return f.y0 + f.h/2
	}
	return f.y0 + f.h - (v-f.lo)/(f.hi-f.lo)*f.h
}

// Chart builds the SVG document for one metric of a projected chart.
func Chart(c series.Chart, m model.Metric, opts Options) *etree.Document {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	cs := c.Metric(m)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", strconv.Itoa(width))
	svg.CreateAttr("height", strconv.Itoa(height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", width, height))
	svg.CreateAttr("font-family", "sans-serif")
	svg.CreateAttr("font-size", "12")

	bg := svg.CreateElement("rect")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")
	bg.CreateAttr("fill", "#FFFCF0")

	title := svg.CreateElement("text")
	title.CreateAttr("class", "title")
	title.CreateAttr("x", num(float64(width)/2))
	title.CreateAttr("y", "24")
	title.CreateAttr("text-anchor", "middle")
	title.CreateAttr("font-size", "16")
	title.SetText(fmt.Sprintf("%s: %s", c.Title, m.Label()))

	lo, hi, ok := bounds(cs)
	f := frame{
		x0: padLeft,
		y0: padTop,
		w:  float64(width) - padLeft - padRight,
		h:  float64(height) - padTop - padBottom,
		n:  len(c.Labels),
	}
	if ok {
		step := tickStep(hi - lo)
		f.lo = math.Floor(lo/step) * step
		f.hi = math.Ceil(hi/step) * step
		drawYAxis(svg, f, step)
	}
	drawXAxis(svg, f, c)

	drawBand(svg, f, cs)
	for _, seg := range segments(cs.Historical) {
		drawLine(svg, f, seg, "historical", colorHistorical, "")
	}
	for _, seg := range segments(cs.Central) {
		drawLine(svg, f, seg, "forecast", colorForecast, "6 4")
	}
	drawSelected(svg, f, c.Labels, opts.Selected)
	drawLegend(svg, f)

	if c.Note != "" {
		note := svg.CreateElement("text")
		note.CreateAttr("class", "note")
		note.CreateAttr("x", num(padLeft))
		note.CreateAttr("y", num(float64(height)-8))
		note.CreateAttr("fill", colorAxis)
		note.CreateAttr("font-size", "10")
		note.SetText(c.Note)
	}

	doc.Indent(2)
	return doc
}

// Write renders the chart to w.
func Write(w io.Writer, c series.Chart, m model.Metric, opts Options) error {
	_, err := Chart(c, m, opts).WriteTo(w)
	return err
}

// Bytes renders the chart to a byte slice.
func Bytes(c series.Chart, m model.Metric, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, c, m, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type point struct {
	i int
	v float64
}

// segments splits a series into runs of present values.
func segments(vals []*float64) [][]point {
	var out [][]point
	var cur []point
	for i, v := range vals {
		if v == nil {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, point{i, *v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func bounds(cs series.ChartSeries) (lo, hi float64, ok bool) {
	for _, vals := range [][]*float64{cs.Historical, cs.Central, cs.Upper, cs.Lower} {
		for _, v := range vals {
			if v == nil {
				continue
			}
			if !ok || *v < lo {
				lo = *v
			}
			if !ok || *v > hi {
				hi = *v
			}
			ok = true
		}
	}
	return lo, hi, ok
}

// tickStep picks a 1/2/5 step giving about five ticks over span.
func tickStep(span float64) float64 {
	if span <= 0 {
		return 1
	}
	raw := span / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func drawYAxis(svg *etree.Element, f frame, step float64) {
	g := svg.CreateElement("g")
	g.CreateAttr("class", "y-axis")
	for v := f.lo; v <= f.hi+step/2; v += step {
		y := f.y(v)
		line := g.CreateElement("line")
		line.CreateAttr("x1", num(f.x0))
		line.CreateAttr("x2", num(f.x0+f.w))
		line.CreateAttr("y1", num(y))
		line.CreateAttr("y2", num(y))
		line.CreateAttr("stroke", colorAxis)
		line.CreateAttr("stroke-opacity", "0.2")

		label := g.CreateElement("text")
		label.CreateAttr("x", num(f.x0-8))
		label.CreateAttr("y", num(y+4))
		label.CreateAttr("text-anchor", "end")
		label.CreateAttr("fill", colorAxis)
		label.SetText(money.FormatCompactGBP(v))
	}
}

func drawXAxis(svg *etree.Element, f frame, c series.Chart) {
	g := svg.CreateElement("g")
	g.CreateAttr("class", "x-axis")

	axis := g.CreateElement("line")
	axis.CreateAttr("x1", num(f.x0))
	axis.CreateAttr("x2", num(f.x0+f.w))
	axis.CreateAttr("y1", num(f.y0+f.h))
	axis.CreateAttr("y2", num(f.y0+f.h))
	axis.CreateAttr("stroke", colorAxis)

	for i, year := range c.Labels {
		label := g.CreateElement("text")
		label.CreateAttr("x", num(f.x(i)))
		label.CreateAttr("y", num(f.y0+f.h+18))
		label.CreateAttr("text-anchor", "middle")
		if c.IsProjected(year) {
			label.CreateAttr("fill", colorForecast)
		} else {
			label.CreateAttr("fill", colorAxis)
		}
		label.SetText(strconv.Itoa(year))
	}
}

// drawBand shades the area between upper and lower bounds.
func drawBand(svg *etree.Element, f frame, cs series.ChartSeries) {
	for _, upper := range segments(cs.Upper) {
		var pts []string
		var lower []point
		for _, p := range upper {
			pts = append(pts, coord(f, p))
			if p.i < len(cs.Lower) && cs.Lower[p.i] != nil {
				lower = append(lower, point{p.i, *cs.Lower[p.i]})
			}
		}
		if len(lower) == 0 {
			continue
		}
		for j := len(lower) - 1; j >= 0; j-- {
			pts = append(pts, coord(f, lower[j]))
		}
		poly := svg.CreateElement("polygon")
		poly.CreateAttr("class", "band")
		poly.CreateAttr("points", strings.Join(pts, " "))
		poly.CreateAttr("fill", colorBand)
		poly.CreateAttr("fill-opacity", "0.18")
		poly.CreateAttr("stroke", "none")
	}
}

func drawLine(svg *etree.Element, f frame, seg []point, class, color, dash string) {
	pts := make([]string, len(seg))
	for i, p := range seg {
		pts[i] = coord(f, p)
	}
	line := svg.CreateElement("polyline")
	line.CreateAttr("class", class)
	line.CreateAttr("points", strings.Join(pts, " "))
	line.CreateAttr("fill", "none")
	line.CreateAttr("stroke", color)
	line.CreateAttr("stroke-width", "2")
	if dash != "" {
		line.CreateAttr("stroke-dasharray", dash)
	}
}

func drawSelected(svg *etree.Element, f frame, labels []int, selected []int) {
	for _, year := range selected {
		for i, y := range labels {
			if y != year {
				continue
			}
			rule := svg.CreateElement("line")
			rule.CreateAttr("class", "selected")
			rule.CreateAttr("x1", num(f.x(i)))
			rule.CreateAttr("x2", num(f.x(i)))
			rule.CreateAttr("y1", num(f.y0))
			rule.CreateAttr("y2", num(f.y0+f.h))
			rule.CreateAttr("stroke", colorSelected)
			rule.CreateAttr("stroke-width", "2")
		}
	}
}

func drawLegend(svg *etree.Element, f frame) {
	g := svg.CreateElement("g")
	g.CreateAttr("class", "legend")
	entries := []struct {
		label, color, dash string
	}{
		{"Historical", colorHistorical, ""},
		{"Forecast", colorForecast, "6 4"},
		{"Uncertainty", colorBand, ""},
	}
	x := f.x0 + 10
	for _, e := range entries {
		sw := g.CreateElement("line")
		sw.CreateAttr("x1", num(x))
		sw.CreateAttr("x2", num(x+20))
		sw.CreateAttr("y1", num(f.y0+8))
		sw.CreateAttr("y2", num(f.y0+8))
		sw.CreateAttr("stroke", e.color)
		if e.label == "Uncertainty" {
			sw.CreateAttr("stroke-width", "8")
			sw.CreateAttr("stroke-opacity", "0.18")
		} else {
			sw.CreateAttr("stroke-width", "2")
		}
		if e.dash != "" {
			sw.CreateAttr("stroke-dasharray", e.dash)
		}
		t := g.CreateElement("text")
		t.CreateAttr("x", num(x+26))
		t.CreateAttr("y", num(f.y0+12))
		t.CreateAttr("fill", colorAxis)
		t.SetText(e.label)
		x += 110
	}
}

func coord(f frame, p point) string {
	return num(f.x(p.i)) + "," + num(f.y(p.v))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
