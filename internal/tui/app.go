// Package tui provides the interactive Bubble Tea dashboard for londongap.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/series"
	"github.com/theirongolddev/londongap/internal/tui/components"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

// Loader fetches datasets and resolves borough names.
type Loader interface {
	Load(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Resolve(ctx context.Context, query string) (string, error)
}

// Options configures a new App.
type Options struct {
	Loader     Loader
	Estimator  *afford.Estimator
	Config     config.Config
	YearsAhead int
	Borough    string
	NeedSetup  bool
}

// DatasetLoadedMsg is sent when a forecast fetch finishes.
type DatasetLoadedMsg struct {
	Borough   string
	Chart     series.Chart
	Origin    pipeline.Origin
	FetchedAt time.Time
	LoadTime  time.Duration
	Err       error
}

const (
	tabForecast = iota
	tabCalculator
)

// App is the root Bubble Tea model.
type App struct {
	loader     Loader
	estimator  *afford.Estimator
	cfg        config.Config
	yearsAhead int

	// Dataset
	borough   string
	chart     series.Chart
	loaded    bool
	loading   bool
	loadErr   error
	origin    pipeline.Origin
	fetchedAt time.Time
	loadTime  time.Duration

	// Forecast tab
	cursor    int
	metric    model.Metric
	selection series.Selection
	insight   *series.Insight
	searching bool
	search    textinput.Model

	// Calculator tab
	calc calcState

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	spinner   spinner.Model

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5
	loadTimeout      = 30 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	estimator := opts.Estimator
	if estimator == nil {
		estimator = afford.New(nil, nil)
	}

	a := App{
		loader:     opts.Loader,
		estimator:  estimator,
		cfg:        opts.Config,
		yearsAhead: opts.YearsAhead,
		borough:    opts.Borough,
		metric:     model.HousePrice,
		loading:    true,
		spinner:    sp,
		search:     newSearchInput(),
		calc:       newCalcState(),
		needSetup:  opts.NeedSetup,
	}
	if a.needSetup {
		a.setupVals = SetupValuesFrom(opts.Config)
		a.setupForm = NewSetupForm(&a.setupVals)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.loadCmd(a.borough),
		a.spinner.Tick,
	}
	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.searching {
			return a.updateSearch(msg)
		}
		if a.activeTab == tabCalculator && a.calc.editing() {
			return a.updateCalculator(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "f", "c":
			a.activeTab = components.TabIdxByKey(rune(key[0]))
			return a, nil
		case "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		case "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		}

		if a.activeTab == tabForecast {
			return a.updateForecast(key)
		}
		return a.updateCalculator(msg)

	case DatasetLoadedMsg:
		a.loading = false
		a.loadTime = msg.LoadTime
		if msg.Err != nil {
			a.loadErr = msg.Err
			return a, nil
		}
		a.loadErr = nil
		a.loaded = true
		a.borough = msg.Borough
		a.chart = msg.Chart
		a.origin = msg.Origin
		a.fetchedAt = msg.FetchedAt
		a.selection = a.selection.Reset()
		a.insight = nil
		a.cursor = a.defaultCursor()
		return a, nil

	case calcDoneMsg:
		a.calc = a.calc.finish(msg)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.searching {
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		return a, cmd
	}
	if a.activeTab == tabCalculator {
		return a.updateCalculator(msg)
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := a.cfg
		if err := a.setupVals.Apply(&cfg); err == nil {
			_ = config.Save(cfg)
			a.cfg = cfg
			theme.SetActive(cfg.Appearance.Theme)
			if est, err := config.Estimator(cfg, "", ""); err == nil {
				a.estimator = est
			}
		}
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// loadCmd fetches and projects a dataset for borough ("" for London).
func (a App) loadCmd(borough string) tea.Cmd {
	loader := a.loader
	yearsAhead := a.yearsAhead
	return func() tea.Msg {
		start := time.Now()
		if loader == nil {
			return DatasetLoadedMsg{Borough: borough, Err: fmt.Errorf("no data source configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		if borough != "" {
			name, err := loader.Resolve(ctx, borough)
			if err != nil {
				return DatasetLoadedMsg{Borough: borough, Err: err, LoadTime: time.Since(start)}
			}
			borough = name
		}

		res, err := loader.Load(ctx, pipeline.Request{Borough: borough, YearsAhead: yearsAhead})
		if err != nil {
			return DatasetLoadedMsg{Borough: borough, Err: err, LoadTime: time.Since(start)}
		}
		chart, err := series.ProjectDataset(res.Dataset)
		if err != nil {
			return DatasetLoadedMsg{Borough: borough, Err: err, LoadTime: time.Since(start)}
		}
		return DatasetLoadedMsg{
			Borough:   borough,
			Chart:     chart,
			Origin:    res.Origin,
			FetchedAt: res.FetchedAt,
			LoadTime:  time.Since(start),
		}
	}
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  londongap needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Keys).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"f c", "Jump to tab"},
			{"tab", "Next tab"},
			{"← →  h l", "Move year cursor"},
		}},
		{"Forecast", [][2]string{
			{"space", "Select year under cursor"},
			{"r", "Reset selection"},
			{"m", "Toggle house price / income"},
			{"/", "Load a borough"},
			{"o", "Back to London overview"},
			{"R", "Reload from provider"},
		}},
		{"Calculator", [][2]string{
			{"enter", "Edit / calculate"},
			{"tab", "Next field while editing"},
			{"esc", "Stop editing"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	statusBar := components.RenderStatusBar(w, a.hints(), a.provenance(), a.loading)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabForecast:
		content = a.renderForecastTab(cw, contentH)
	case tabCalculator:
		content = a.renderCalculatorTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) hints() string {
	if a.activeTab == tabCalculator {
		return "[enter]calculate  [?]help  [q]uit"
	}
	return "[space]select  [r]eset  [m]etric  [/]borough  [?]help  [q]uit"
}

func (a App) provenance() string {
	if !a.loaded {
		return ""
	}
	parts := []string{string(a.origin)}
	if !a.fetchedAt.IsZero() {
		parts = append(parts, "fetched "+cli.FormatAge(time.Since(a.fetchedAt))+" ago")
	}
	return strings.Join(parts, " · ")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
