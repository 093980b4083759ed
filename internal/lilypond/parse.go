package lilypond

import (
	"fmt"
	"strings"

	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/score"
)

// ParseVoice reads a sequence of notes in LilyPond english notation, such as
// "g4 c' b e b2". A missing duration repeats the previous one, starting from a
// quarter. Rests (r), skips (s) and chords (<c e g>4) are accepted.
func ParseVoice(name, src string) (score.Voice, error) {
	v := score.NewVoice(name)
	current := pitch.Quarter

	tokens, err := tokenize(src)
	if err != nil {
		return v, err
	}
	for _, tok := range tokens {
		e, err := parseEvent(tok, current)
		if err != nil {
			return score.Voice{}, err
		}
		current = e.Duration
		v.Events = append(v.Events, e)
	}
	return v, nil
}

// tokenize splits on whitespace, keeping chord brackets together
func tokenize(src string) ([]string, error) {
	var tokens []string
	var chord []string
	for _, f := range strings.Fields(src) {
		switch {
		case chord != nil:
			chord = append(chord, f)
			if strings.Contains(f, ">") {
				tokens = append(tokens, strings.Join(chord, " "))
				chord = nil
			}
		case strings.HasPrefix(f, "<") && !strings.Contains(f, ">"):
			chord = []string{f}
		default:
			tokens = append(tokens, f)
		}
	}
	if chord != nil {
		return nil, fmt.Errorf("unclosed chord %q: %w", strings.Join(chord, " "), errs.ErrInvalidNotation)
	}
	return tokens, nil
}

func parseEvent(tok string, current pitch.Duration) (score.Event, error) {
	switch {
	case strings.HasPrefix(tok, "<"):
		end := strings.Index(tok, ">")
		ps, err := parsePitches(tok[1:end])
		if err != nil {
			return score.Event{}, err
		}
		d, err := parseDuration(tok[end+1:], current)
		if err != nil {
			return score.Event{}, err
		}
		return score.NewChord(ps, d), nil
	case tok[0] == 'r' || tok[0] == 's':
		d, err := parseDuration(tok[1:], current)
		if err != nil {
			return score.Event{}, err
		}
		if tok[0] == 'r' {
			return score.NewRest(d), nil
		}
		return score.NewSkip(d), nil
	default:
		p, rest, err := pitch.ParsePrefix(tok)
		if err != nil {
			return score.Event{}, err
		}
		d, err := parseDuration(rest, current)
		if err != nil {
			return score.Event{}, err
		}
		return score.NewNote(p, d), nil
	}
}

func parsePitches(src string) ([]pitch.Pitch, error) {
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty chord: %w", errs.ErrInvalidNotation)
	}
	ps := make([]pitch.Pitch, 0, len(fields))
	for _, f := range fields {
		p, err := pitch.Parse(f)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func parseDuration(s string, current pitch.Duration) (pitch.Duration, error) {
	if s == "" {
		return current, nil
	}
	d, err := pitch.ParseDuration(s)
	if err != nil {
		return pitch.Duration{}, fmt.Errorf("%w: %w", errs.ErrInvalidNotation, err)
	}
	return d, nil
}
