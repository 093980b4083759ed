// Package enfilade hides a melody inside a stream of arpeggios. Each pass draws
// a fresh pool of arpeggiated chords and picks, in pool order, one arpeggio for
// each melody pitch, accenting the note that carries the melody.
package enfilade

import (
	"fmt"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// Pass is the transposition and dynamics of one pass through the melody
type Pass struct {
	Transposition int
	BaseDynamic   string
	MelodyDynamic string
}

// Passes rise to the untransposed, loudest statement in the middle and fall back
var Passes = [5]Pass{
	{Transposition: 24, BaseDynamic: "ppp", MelodyDynamic: "mf"},
	{Transposition: 12, BaseDynamic: "p", MelodyDynamic: "f"},
	{Transposition: 0, BaseDynamic: "mf", MelodyDynamic: "ff"},
	{Transposition: 12, BaseDynamic: "p", MelodyDynamic: "f"},
	{Transposition: 24, BaseDynamic: "ppp", MelodyDynamic: "mf"},
}

// EmphasisArticulation marks a melody note inside an arpeggio (tenuto, up)
const EmphasisArticulation = "^-"

// PassAt returns pass i
func PassAt(i int) (Pass, error) {
	if i < 0 || i >= len(Passes) {
		return Pass{}, errs.NewLookupError("pass", i)
	}
	return Passes[i], nil
}

// Selection is one arpeggio picked to carry a melody pitch
type Selection struct {
	PoolIndex int
	Target    pitch.Pitch
	Voice     score.Voice
}

// Search walks pool in order looking for the melody pitches of pass, one at a
// time. The first arpeggio containing the current target is picked and the
// search moves to the next melody pitch; there is no lookahead. A target no
// arpeggio contains stops the search from advancing for the rest of the pool.
//
// Picked arpeggios are copies with the pass dynamics applied; pool is not changed.
func Search(melody score.Voice, pool []score.Voice, pass Pass) []Selection {
	targets := melody.NotePitches()
	var selected []Selection
	next := 0
	for i, arpeggio := range pool {
		if next == len(targets) {
			break
		}
		target := targets[next].Add(pass.Transposition)
		if !arpeggio.Contains(target) {
			continue
		}
		selected = append(selected, Selection{
			PoolIndex: i,
			Target:    target,
			Voice:     emphasize(arpeggio, target, pass),
		})
		next++
	}
	return selected
}

// FindMelodyInArpeggios runs Search for pass passIndex and returns the picked voices
func FindMelodyInArpeggios(melody score.Voice, pool []score.Voice, passIndex int) ([]score.Voice, error) {
	pass, err := PassAt(passIndex)
	if err != nil {
		return nil, fmt.Errorf("find melody: %w", err)
	}
	selections := Search(melody, pool, pass)
	voices := make([]score.Voice, 0, len(selections))
	for _, s := range selections {
		voices = append(voices, s.Voice)
	}
	return voices, nil
}

// emphasize sets the base dynamic on the first note, then gives every note
// sounding target the accent and the melody dynamic, dropping back to the base
// dynamic on the note after it.
func emphasize(arpeggio score.Voice, target pitch.Pitch, pass Pass) score.Voice {
	out := arpeggio.Clone()
	if out.Len() == 0 {
		return out
	}
	out.Events[0].Dynamic = pass.BaseDynamic

	for i := range out.Events {
		e := &out.Events[i]
		if e.Kind != score.KindNote || e.Pitch() != target {
			continue
		}
		e.Articulations = append(e.Articulations, EmphasisArticulation)
		e.Dynamic = pass.MelodyDynamic
		if i < out.Len()-1 {
			out.Events[i+1].Dynamic = pass.BaseDynamic
		}
	}
	return out
}
