// Package lilypond turns a score description into LilyPond source.
package lilypond

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dygy/chartgen/internal/score"
)

// Defaults of a generated document
const (
	DefaultVersion  = "2.24.0"
	DefaultLanguage = "english"
)

// Paper is the \paper block
type Paper struct {
	Width         string // with unit, "8.5\in"
	Height        string
	TopMargin     string
	BottomMargin  string
	LeftMargin    string
	RightMargin   string
	RaggedBottom  bool
	SystemSpacing int // system-system-spacing basic distance, in staff spaces
}

// Layout is the \layout block of the score
type Layout struct {
	Indent      float64
	RaggedRight bool
}

// Document is a complete LilyPond file
type Document struct {
	Version         string
	Language        string
	GlobalStaffSize int
	Paper           Paper
	Layout          Layout
	Score           score.Score
}

// ChartPaper is the letter-size page of the chord charts
func ChartPaper() Paper {
	return Paper{
		Width:         `8.5\in`,
		Height:        `11\in`,
		TopMargin:     `0.5\in`,
		LeftMargin:    `1.5\in`,
		RightMargin:   `1.5\in`,
		RaggedBottom:  false,
		SystemSpacing: 16,
	}
}

// EnfiladePaper is the tabloid page of an enfilade
func EnfiladePaper() Paper {
	return Paper{
		Width:         `11\in`,
		Height:        `17\in`,
		TopMargin:     `2\in`,
		BottomMargin:  `0\in`,
		LeftMargin:    `1\in`,
		RightMargin:   `1\in`,
		RaggedBottom:  true,
		SystemSpacing: 26,
	}
}

var sharedScoreSettings = []string{
	`tupletFullLength = ##t`,
	`\override TupletBracket.padding = #2`,
	`\override TupletBracket.staff-padding = #4`,
	`\override TupletNumber.text = #tuplet-number::calc-fraction-text`,
	`\override TimeSignature.stencil = ##f`,
	`\override BarNumber.transparent = ##t`,
}

// ChartScoreSettings are the Score context settings of the chord charts
func ChartScoreSettings() []string {
	return append([]string{
		`proportionalNotationDuration = #(ly:make-moment 1/16)`,
		`\override SpacingSpanner.uniform-stretching = ##t`,
		`\override SpacingSpanner.strict-note-spacing = ##t`,
		`\override SpanBar.stencil = ##f`,
		`measureBarType = #""`,
	}, sharedScoreSettings...)
}

// EnfiladeScoreSettings are the Score context settings of an enfilade
func EnfiladeScoreSettings() []string {
	return append([]string{
		`proportionalNotationDuration = #(ly:make-moment 1/4)`,
		`\override SpacingSpanner.uniform-stretching = ##f`,
		`\override SpacingSpanner.strict-note-spacing = ##f`,
	}, sharedScoreSettings...)
}

// NewChartDocument wraps s in the chord chart page setup
func NewChartDocument(s score.Score) Document {
	s.With = append(ChartScoreSettings(), s.With...)
	return Document{
		Version:         DefaultVersion,
		Language:        DefaultLanguage,
		GlobalStaffSize: 16,
		Paper:           ChartPaper(),
		Score:           s,
	}
}

// NewEnfiladeDocument wraps s in the enfilade page setup
func NewEnfiladeDocument(s score.Score) Document {
	s.With = append(EnfiladeScoreSettings(), s.With...)
	return Document{
		Version:         DefaultVersion,
		Language:        DefaultLanguage,
		GlobalStaffSize: 14,
		Paper:           EnfiladePaper(),
		Score:           s,
	}
}

// Render returns the document as LilyPond source
func Render(doc Document) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write emits doc to w
func Write(w io.Writer, doc Document) error {
	p := &printer{w: bufio.NewWriter(w)}

	version := doc.Version
	if version == "" {
		version = DefaultVersion
	}
	language := doc.Language
	if language == "" {
		language = DefaultLanguage
	}
	p.line(`\version "%s"`, version)
	p.line(`\language "%s"`, language)
	if doc.GlobalStaffSize > 0 {
		p.line(`#(set-global-staff-size %d)`, doc.GlobalStaffSize)
	}
	p.line("")
	p.paper(doc.Paper)
	p.line("")

	p.open(`\score {`)
	p.score(doc.Score)
	p.layout(doc.Layout, doc.Score.With)
	p.close("}")

	if p.err != nil {
		return fmt.Errorf("write lilypond: %w", p.err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("write lilypond: %w", err)
	}
	return nil
}

// printer writes indented lines and keeps the first error
type printer struct {
	w      *bufio.Writer
	indent int
	err    error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	if format == "" {
		_, p.err = p.w.WriteString("\n")
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

func (p *printer) open(format string, args ...any) {
	p.line(format, args...)
	p.indent++
}

func (p *printer) close(text string) {
	p.indent--
	p.line("%s", text)
}

func (p *printer) paper(pp Paper) {
	p.open(`\paper {`)
	for _, kv := range [][2]string{
		{"paper-width", pp.Width},
		{"paper-height", pp.Height},
		{"top-margin", pp.TopMargin},
		{"bottom-margin", pp.BottomMargin},
		{"left-margin", pp.LeftMargin},
		{"right-margin", pp.RightMargin},
	} {
		if kv[1] != "" {
			p.line("%s = %s", kv[0], kv[1])
		}
	}
	p.line("ragged-bottom = %s", boolean(pp.RaggedBottom))
	if pp.SystemSpacing > 0 {
		p.line("system-system-spacing.basic-distance = #%d", pp.SystemSpacing)
	}
	p.close("}")
}

func (p *printer) layout(l Layout, settings []string) {
	p.open(`\layout {`)
	p.line("indent = %g", l.Indent)
	p.line("ragged-right = %s", boolean(l.RaggedRight))
	if len(settings) > 0 {
		p.open(`\context {`)
		p.line(`\Score`)
		for _, s := range settings {
			p.line("%s", s)
		}
		p.close("}")
	}
	p.close("}")
}

func (p *printer) score(s score.Score) {
	if s.Group != "" {
		p.open(`\new %s <<`, s.Group)
	} else {
		p.open("<<")
	}
	for _, st := range s.Staves {
		p.staff(st)
	}
	p.close(">>")
}

func (p *printer) staff(st score.Staff) {
	head := `\new Staff`
	if st.Name != "" {
		head += fmt.Sprintf(` = "%s"`, st.Name)
	}
	if len(st.With) > 0 {
		p.open(`%s \with {`, head)
		for _, w := range st.With {
			p.line("%s", w)
		}
		p.indent--
		p.open("} {")
	} else {
		p.open("%s {", head)
	}
	if st.Clef != "" {
		p.line(`\clef "%s"`, st.Clef)
	}
	for _, v := range st.Voices {
		p.voice(v)
	}
	p.close("}")
}

func (p *printer) voice(v score.Voice) {
	if v.Name != "" {
		p.open("{ %% %s", v.Name)
	} else {
		p.open("{")
	}
	for _, o := range v.Overrides {
		p.line("%s", o)
	}
	for _, e := range v.Events {
		p.event(e)
	}
	p.close("}")
}

func (p *printer) event(e score.Event) {
	for _, c := range e.Commands {
		if !c.After {
			p.line("%s", c.Text)
		}
	}
	if e.TimeSignature != nil {
		p.line(`\time %d/%d`, e.TimeSignature.Num, e.TimeSignature.Den)
	}
	if e.Tempo != nil {
		p.line(`\tempo %s = %d`, e.Tempo.Unit.LilyPond(), e.Tempo.BPM)
	}
	p.line("%s", FormatEvent(e))
	for _, c := range e.Commands {
		if c.After {
			p.line("%s", c.Text)
		}
	}
}

// FormatEvent returns the leaf with its postfix marks: "c'16^-\mf[\("
func FormatEvent(e score.Event) string {
	var sb strings.Builder
	switch e.Kind {
	case score.KindNote:
		sb.WriteString(e.Pitch().Name())
	case score.KindChord:
		sb.WriteByte('<')
		for i, ps := range e.Pitches {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(ps.Name())
		}
		sb.WriteByte('>')
	case score.KindRest:
		sb.WriteByte('r')
	case score.KindSkip:
		sb.WriteByte('s')
	default:
		panic(fmt.Sprintf("lilypond: unknown event kind %s", e.Kind))
	}
	sb.WriteString(e.Duration.LilyPond())
	for _, a := range e.Articulations {
		sb.WriteString(a)
	}
	if e.Dynamic != "" {
		sb.WriteString(`\` + e.Dynamic)
	}
	for _, s := range e.Spanners {
		sb.WriteString(s)
	}
	return sb.String()
}

func boolean(b bool) string {
	if b {
		return "##t"
	}
	return "##f"
}
