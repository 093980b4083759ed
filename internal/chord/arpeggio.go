package chord

import (
	"fmt"

	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// ArpeggioDuration is the written duration of each arpeggiated note
var ArpeggioDuration = pitch.Sixteenth

// Arpeggiate spreads a chord into single notes from the top pitch down.
// A single note arpeggiates to itself; rests and skips to an empty voice.
func Arpeggiate(e score.Event) score.Voice {
	v := score.Voice{Name: "arpeggio"}
	switch e.Kind {
	case score.KindChord, score.KindNote:
		for i := len(e.Pitches) - 1; i >= 0; i-- {
			v.Events = append(v.Events, score.NewNote(e.Pitches[i], ArpeggioDuration))
		}
	case score.KindRest, score.KindSkip:
	default:
		panic(fmt.Sprintf("chord: arpeggiate unknown event kind %s", e.Kind))
	}
	return v
}

// ArpeggiateAll arpeggiates each chord in order
func ArpeggiateAll(chords []score.Event) []score.Voice {
	voices := make([]score.Voice, 0, len(chords))
	for _, c := range chords {
		voices = append(voices, Arpeggiate(c))
	}
	return voices
}

// Flatten joins voices end to end into one voice
func Flatten(name string, voices []score.Voice) score.Voice {
	out := score.Voice{Name: name}
	for _, v := range voices {
		for _, e := range v.Events {
			out.Events = append(out.Events, e.Clone())
		}
	}
	return out
}
