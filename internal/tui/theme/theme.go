// Package theme defines color themes for the londongap TUI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps the TUI's color roles to concrete colors.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab
	SurfaceBright lipgloss.Color // bar under the cursor
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused card

	TextDim      lipgloss.Color // hints
	TextMuted    lipgloss.Color // labels
	TextPrimary  lipgloss.Color
	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	Keys         lipgloss.Color // key names in the help overlay

	Observed  lipgloss.Color // years with recorded data
	Projected lipgloss.Color // forecast years
	Selected  lipgloss.Color // years picked for comparison

	Affordable lipgloss.Color
	Stretch    lipgloss.Color
	Error      lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    lipgloss.Color("#100F0F"),
	Surface:       lipgloss.Color("#1C1B1A"),
	SurfaceHover:  lipgloss.Color("#282726"),
	SurfaceBright: lipgloss.Color("#343331"),
	Border:        lipgloss.Color("#403E3C"),
	BorderAccent:  lipgloss.Color("#3AA99F"),
	TextDim:       lipgloss.Color("#575653"),
	TextMuted:     lipgloss.Color("#878580"),
	TextPrimary:   lipgloss.Color("#FFFCF0"),
	Accent:        lipgloss.Color("#3AA99F"),
	AccentBright:  lipgloss.Color("#5BC8BE"),
	Keys:          lipgloss.Color("#24837B"),
	Observed:      lipgloss.Color("#4385BE"),
	Projected:     lipgloss.Color("#DA702C"),
	Selected:      lipgloss.Color("#CE5D97"),
	Affordable:    lipgloss.Color("#879A39"),
	Stretch:       lipgloss.Color("#D0A215"),
	Error:         lipgloss.Color("#D14D41"),
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:          "catppuccin-mocha",
	Background:    lipgloss.Color("#1E1E2E"),
	Surface:       lipgloss.Color("#313244"),
	SurfaceHover:  lipgloss.Color("#45475A"),
	SurfaceBright: lipgloss.Color("#585B70"),
	Border:        lipgloss.Color("#585B70"),
	BorderAccent:  lipgloss.Color("#89B4FA"),
	TextDim:       lipgloss.Color("#6C7086"),
	TextMuted:     lipgloss.Color("#A6ADC8"),
	TextPrimary:   lipgloss.Color("#CDD6F4"),
	Accent:        lipgloss.Color("#89B4FA"),
	AccentBright:  lipgloss.Color("#B4D0FB"),
	Keys:          lipgloss.Color("#94E2D5"),
	Observed:      lipgloss.Color("#74C7EC"),
	Projected:     lipgloss.Color("#FAB387"),
	Selected:      lipgloss.Color("#F5C2E7"),
	Affordable:    lipgloss.Color("#A6E3A1"),
	Stretch:       lipgloss.Color("#F9E2AF"),
	Error:         lipgloss.Color("#F38BA8"),
}

// TokyoNight is a cool blue and purple theme.
var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    lipgloss.Color("#1A1B26"),
	Surface:       lipgloss.Color("#24283B"),
	SurfaceHover:  lipgloss.Color("#343A52"),
	SurfaceBright: lipgloss.Color("#414868"),
	Border:        lipgloss.Color("#565F89"),
	BorderAccent:  lipgloss.Color("#7AA2F7"),
	TextDim:       lipgloss.Color("#565F89"),
	TextMuted:     lipgloss.Color("#A9B1D6"),
	TextPrimary:   lipgloss.Color("#C0CAF5"),
	Accent:        lipgloss.Color("#7AA2F7"),
	AccentBright:  lipgloss.Color("#A9C1FF"),
	Keys:          lipgloss.Color("#7DCFFF"),
	Observed:      lipgloss.Color("#2AC3DE"),
	Projected:     lipgloss.Color("#FF9E64"),
	Selected:      lipgloss.Color("#BB9AF7"),
	Affordable:    lipgloss.Color("#9ECE6A"),
	Stretch:       lipgloss.Color("#E0AF68"),
	Error:         lipgloss.Color("#F7768E"),
}

// Terminal sticks to the 16 ANSI colors.
var Terminal = Theme{
	Name:          "terminal",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceHover:  lipgloss.Color("8"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderAccent:  lipgloss.Color("6"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("6"),
	AccentBright:  lipgloss.Color("14"),
	Keys:          lipgloss.Color("6"),
	Observed:      lipgloss.Color("4"),
	Projected:     lipgloss.Color("3"),
	Selected:      lipgloss.Color("5"),
	Affordable:    lipgloss.Color("2"),
	Stretch:       lipgloss.Color("11"),
	Error:         lipgloss.Color("1"),
}

// All lists the themes offered by setup, default first.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// SeriesColor returns the bar color for observed or projected years.
func (t Theme) SeriesColor(projected bool) lipgloss.Color {
	if projected {
		return t.Projected
	}
	return t.Observed
}

// TierColor maps an affordability status name to a color.
func (t Theme) TierColor(status string) lipgloss.Color {
	switch status {
	case "error":
		return t.Error
	case "warning":
		return t.Stretch
	case "success":
		return t.Affordable
	}
	return t.TextMuted
}

// Names lists the available theme names.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}
