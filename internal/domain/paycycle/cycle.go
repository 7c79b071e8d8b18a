// internal/domain/paycycle/cycle.go
package paycycle

import "paytrack/internal/domain/calendar"

// Length is the bi-weekly cadence in days.
const Length = 14

// Cycle is an inclusive window ending on a payday.
type Cycle struct {
	Start calendar.Date
	End   calendar.Date
}

func (c Cycle) Contains(d calendar.Date) bool {
	return d.Between(c.Start, c.End)
}

func (c Cycle) Next() Cycle {
	return endingOn(c.End.AddDays(Length))
}

func (c Cycle) Previous() Cycle {
	return endingOn(c.End.AddDays(-Length))
}

func (c Cycle) String() string {
	return c.Start.String() + ".." + c.End.String()
}

// Calculator projects the 14-day lattice through Anchor in both directions.
// It holds no state beyond the anchor it was built with.
type Calculator struct {
	Anchor calendar.Date
}

func NewCalculator(anchor calendar.Date) Calculator {
	return Calculator{Anchor: anchor}
}

// CycleFor returns the unique cycle n with Anchor+14n-13 <= d <= Anchor+14n.
func (c Calculator) CycleFor(d calendar.Date) Cycle {
	n := ceilDiv(d.DaysSince(c.Anchor), Length)
	return endingOn(c.Anchor.AddDays(n * Length))
}

func (c Calculator) NextCycle(cycle Cycle) Cycle     { return cycle.Next() }
func (c Calculator) PreviousCycle(cycle Cycle) Cycle { return cycle.Previous() }

func (c Calculator) IsPayday(d calendar.Date) bool {
	return d.DaysSince(c.Anchor)%Length == 0
}

func endingOn(end calendar.Date) Cycle {
	return Cycle{Start: end.AddDays(-(Length - 1)), End: end}
}

// ceilDiv rounds toward positive infinity for any sign of a (b > 0).
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}
