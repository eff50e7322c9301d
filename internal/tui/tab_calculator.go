package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/money"
	"github.com/theirongolddev/londongap/internal/tui/components"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

// calcDelay is how long the "Calculating..." spinner shows before the
// result appears.
const calcDelay = 600 * time.Millisecond

const (
	fieldSalary = iota
	fieldPrice
	fieldAge
)

var calcLabels = []string{"Annual salary (£)", "Property price (£)", "Your age (optional)"}

type calcState struct {
	inputs      []textinput.Model
	focus       int
	active      bool
	calculating bool
	result      *afford.Result
	err         error
}

type calcDoneMsg struct {
	Result afford.Result
	Err    error
}

func newCalcState() calcState {
	placeholders := []string{"e.g. 60 000", "e.g. 300 000", "e.g. 30"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = "› "
		ti.CharLimit = 16
		ti.Width = 20
		inputs[i] = ti
	}
	inputs[fieldAge].Validate = func(s string) error {
		for _, r := range s {
			if r < '0' || r > '9' {
				return errors.New("digits only")
			}
		}
		return nil
	}
	return calcState{inputs: inputs}
}

func (c calcState) editing() bool { return c.active }

func (c calcState) finish(msg calcDoneMsg) calcState {
	c.calculating = false
	c.err = msg.Err
	c.result = nil
	if msg.Err == nil {
		r := msg.Result
		c.result = &r
	}
	return c
}

func (c *calcState) focusField(i int) tea.Cmd {
	c.focus = (i + len(c.inputs)) % len(c.inputs)
	var cmd tea.Cmd
	for j := range c.inputs {
		if j == c.focus {
			cmd = c.inputs[j].Focus()
		} else {
			c.inputs[j].Blur()
		}
	}
	return cmd
}

func (c *calcState) blurAll() {
	c.active = false
	for j := range c.inputs {
		c.inputs[j].Blur()
	}
}

// parseCalcInput reads the form fields. Amounts accept grouped digits;
// an empty age means none was given.
func parseCalcInput(salary, price, age string) (afford.Input, error) {
	var in afford.Input
	s, err := money.ParseAmount(salary)
	if err != nil {
		return in, fmt.Errorf("salary: %w", err)
	}
	p, err := money.ParseAmount(price)
	if err != nil {
		return in, fmt.Errorf("price: %w", err)
	}
	in.Salary, in.Price = s, p

	if age = strings.TrimSpace(age); age != "" {
		n, err := strconv.Atoi(age)
		if err != nil {
			return in, fmt.Errorf("age: %q is not a whole number", age)
		}
		in.Age = &n
	}
	return in, nil
}

func (a App) updateCalculator(msg tea.Msg) (tea.Model, tea.Cmd) {
	c := &a.calc
	if km, ok := msg.(tea.KeyMsg); ok {
		key := km.String()
		if !c.active {
			if key == "enter" || key == "e" {
				c.active = true
				return a, c.focusField(c.focus)
			}
			return a, nil
		}
		switch key {
		case "esc":
			c.blurAll()
			return a, nil
		case "tab", "down":
			return a, c.focusField(c.focus + 1)
		case "shift+tab", "up":
			return a, c.focusField(c.focus - 1)
		case "enter":
			return a.submitCalculator()
		}
	}

	if !c.active {
		return a, nil
	}
	var cmd tea.Cmd
	c.inputs[c.focus], cmd = c.inputs[c.focus].Update(msg)
	return a, cmd
}

func (a App) submitCalculator() (tea.Model, tea.Cmd) {
	c := &a.calc
	in, err := parseCalcInput(
		c.inputs[fieldSalary].Value(),
		c.inputs[fieldPrice].Value(),
		c.inputs[fieldAge].Value(),
	)
	if err != nil {
		c.err = err
		c.result = nil
		return a, nil
	}

	c.blurAll()
	c.calculating = true
	c.err = nil
	est := a.estimator
	return a, tea.Tick(calcDelay, func(time.Time) tea.Msg {
		r, err := est.Estimate(in)
		return calcDoneMsg{Result: r, Err: err}
	})
}

func (a App) renderCalculatorTab(cw int) string {
	t := theme.Active
	c := a.calc

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	focusStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var form strings.Builder
	for i, ti := range c.inputs {
		label := labelStyle.Render(fmt.Sprintf("%-22s", calcLabels[i]))
		if c.active && i == c.focus {
			label = focusStyle.Render(fmt.Sprintf("%-22s", calcLabels[i]))
		}
		form.WriteString(label + " " + ti.View() + "\n")
	}
	form.WriteString("\n")
	if c.active {
		form.WriteString(dimStyle.Render("tab next field · enter calculate · esc done"))
	} else {
		form.WriteString(dimStyle.Render("press enter to edit · model " + a.estimator.Model().Name()))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Years to afford a home", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Result", a.renderCalcResult(), cw))
	return b.String()
}

func (a App) renderCalcResult() string {
	t := theme.Active
	c := a.calc
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	switch {
	case c.calculating:
		return muted.Render(a.spinner.View() + " Calculating...")
	case c.err != nil:
		return lipgloss.NewStyle().Foreground(t.Error).Background(t.Surface).Render(c.err.Error())
	case c.result == nil:
		return muted.Render("Enter a salary and a price to see how long it takes.")
	}

	r := c.result
	msgStyle := lipgloss.NewStyle().Foreground(t.TierColor(string(r.Status))).Background(t.Surface).Bold(true)
	detail := fmt.Sprintf("%s · age at purchase %d · %s", cli.FormatYearsMonths(r.Years, r.Months), r.TotalAge, r.Model)
	return msgStyle.Render(r.Message) + "\n" + muted.Render(detail)
}
