// Package analysis counts ledger lines, the quantity the staff layout is
// chosen to keep low.
package analysis

import (
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// lines holds the staff steps of the bottom and top staff lines, c' = 0
type lines struct{ bottom, top int }

var clefLines = map[string]lines{
	"":          {2, 10},
	"treble":    {2, 10},
	"treble^8":  {9, 17},
	"treble^15": {16, 24},
	"bass":      {-10, -2},
	"bass_8":    {-17, -9},
}

// LedgerLines returns how many ledger lines p needs under clef
func LedgerLines(p pitch.Pitch, clef string) (int, error) {
	l, ok := clefLines[clef]
	if !ok {
		return 0, errs.NewLookupError("clef", clef)
	}
	step := p.StaffStep()
	switch {
	case step > l.top:
		return (step - l.top) / 2, nil
	case step < l.bottom:
		return (l.bottom - step) / 2, nil
	default:
		return 0, nil
	}
}

// StaffStats are the ledger-line counts of one staff
type StaffStats struct {
	Name        string `json:"name"`
	Clef        string `json:"clef"`
	Pitches     int    `json:"pitches"`
	LedgerLines int    `json:"ledger_lines"`
	MostLedgers int    `json:"most_ledgers"` // on a single pitch
}

// Result summarizes a set of staves
type Result struct {
	PerStaff []StaffStats `json:"per_staff"`
	Total    int          `json:"total"`
	Low      pitch.Pitch  `json:"low"`
	High     pitch.Pitch  `json:"high"`
}

// Analyze counts the ledger lines of every sounding pitch on staves
func Analyze(staves []score.Staff) (Result, error) {
	var res Result
	first := true
	for _, st := range staves {
		stats := StaffStats{Name: st.Name, Clef: st.Clef}
		for _, p := range st.Pitches() {
			n, err := LedgerLines(p, st.Clef)
			if err != nil {
				return Result{}, err
			}
			stats.Pitches++
			stats.LedgerLines += n
			stats.MostLedgers = max(stats.MostLedgers, n)

			if first || p < res.Low {
				res.Low = p
			}
			if first || p > res.High {
				res.High = p
			}
			first = false
		}
		res.Total += stats.LedgerLines
		res.PerStaff = append(res.PerStaff, stats)
	}
	return res, nil
}

// SingleStaff counts the ledger lines v would need on one treble staff
func SingleStaff(v score.Voice) (Result, error) {
	return Analyze([]score.Staff{{Name: "single", Clef: "treble", Voices: []score.Voice{v}}})
}
