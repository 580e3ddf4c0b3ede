package glyph

import "fmt"

type Glyph struct {
	Key     string
	Symbol  string
	Meaning string
}

const (
	escape        = "\x1b"
	resetCode     = 0
	boldCode      = 1
	italicCode    = 3
	underlineCode = 4
	strikeCode    = 9
)

func Strike(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, strikeCode, in, escape, resetCode)
}

func Bold(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, boldCode, in, escape, resetCode)
}

func Underline(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, underlineCode, in, escape, resetCode)
}

func DefaultGlyphs() []Glyph {
	g := make([]Glyph, 0, 6)

	g = append(g, Glyph{
		Key:     "+",
		Symbol:  "●",
		Meaning: "fresh",
	}, Glyph{
		Key:     "~",
		Symbol:  "◐",
		Meaning: "expiring soon",
	}, Glyph{
		Key:     "x",
		Symbol:  "✘",
		Meaning: "expired",
	}, Glyph{
		Key:     "o",
		Symbol:  "○",
		Meaning: "consumed",
	}, Glyph{
		Key:     "-",
		Symbol:  "⦵",
		Meaning: "spoiled",
	}, Glyph{
		Key:     ">",
		Symbol:  "›",
		Meaning: "to buy",
	})

	return g
}

func (g Glyph) String() string {
	return g.Symbol
}

type Status int

const (
	Fresh Status = iota
	Expiring
	Expired
	Consumed
	Spoiled
	Needed
)

func (s Status) Glyph() Glyph {
	return DefaultGlyphs()[s]
}

func (s Status) String() string {
	return s.Glyph().String()
}
