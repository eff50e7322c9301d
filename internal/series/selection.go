package series

import "fmt"

// SelectionState is the number of years currently picked.
type SelectionState int

const (
	Empty SelectionState = iota
	OneSelected
	TwoSelected
)

func (s SelectionState) String() string {
	switch s {
	case OneSelected:
		return "one"
	case TwoSelected:
		return "two"
	}
	return "empty"
}

// Selection holds at most two distinct years, kept in ascending order once
// both are picked. The zero value is Empty.
type Selection struct {
	state SelectionState
	years [2]int
}

// SelectYear returns the selection after a click on year. A click while two
// years are selected starts a new selection at that year.
func SelectYear(cur Selection, year int) Selection {
	switch cur.state {
	case Empty:
		return Selection{state: OneSelected, years: [2]int{year}}
	case OneSelected:
		a := cur.years[0]
		if a == year {
			return cur
		}
		if year < a {
			a, year = year, a
		}
		return Selection{state: TwoSelected, years: [2]int{a, year}}
	default:
		return Selection{state: OneSelected, years: [2]int{year}}
	}
}

// Select is SelectYear as a method.
func (s Selection) Select(year int) Selection { return SelectYear(s, year) }

// Reset returns the empty selection.
func (s Selection) Reset() Selection { return Selection{} }

// State reports how many years are selected.
func (s Selection) State() SelectionState { return s.state }

// Years returns the selected years in ascending order.
func (s Selection) Years() []int {
	switch s.state {
	case OneSelected:
		return []int{s.years[0]}
	case TwoSelected:
		return []int{s.years[0], s.years[1]}
	}
	return nil
}

// Range returns both years when two are selected.
func (s Selection) Range() (from, to int, ok bool) {
	if s.state != TwoSelected {
		return 0, 0, false
	}
	return s.years[0], s.years[1], true
}

// Contains reports whether year is selected.
func (s Selection) Contains(year int) bool {
	for _, y := range s.Years() {
		if y == year {
			return true
		}
	}
	return false
}

func (s Selection) String() string {
	switch s.state {
	case OneSelected:
		return fmt.Sprintf("%d (pick one more year)", s.years[0])
	case TwoSelected:
		return fmt.Sprintf("%d → %d", s.years[0], s.years[1])
	}
	return "None"
}
