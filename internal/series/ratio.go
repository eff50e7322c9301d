package series

// YearRatio is the price-to-income multiple shown for one year.
type YearRatio struct {
	Year      int     `json:"year"`
	Ratio     float64 `json:"ratio"`
	Projected bool    `json:"projected"`
}

// Ratios computes house price over annual income for every year where both
// values are shown and income is positive.
func Ratios(c Chart) []YearRatio {
	var out []YearRatio
	for i, y := range c.Labels {
		p := c.HousePrice.Shown(i)
		inc := c.AnnualIncome.Shown(i)
		if p == nil || inc == nil || *inc <= 0 {
			continue
		}
		out = append(out, YearRatio{Year: y, Ratio: *p / *inc, Projected: c.IsProjected(y)})
	}
	return out
}

// Latest returns the ratio for the last observed year.
func Latest(rs []YearRatio) (YearRatio, bool) {
	var best YearRatio
	found := false
	for _, r := range rs {
		if !r.Projected {
			best, found = r, true
		}
	}
	return best, found
}
