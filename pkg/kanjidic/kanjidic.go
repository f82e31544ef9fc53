// Package kanjidic parses the KANJIDIC2 XML character dictionary into
// normalized records: one character per top-level element, with its readings
// and meanings attached by literal.
//
// The parser is a single forward pass over the XML token stream and never
// holds the whole document in memory. See Parser for the streaming API and
// ParseAll for the collect-everything convenience.
package kanjidic

// Reading types retained by the parser. KANJIDIC2 tags each reading element
// with an r_type attribute; only the on and kun pronunciation categories
// become records, every other type is dropped.
const (
	ReadingOn  = "ja_on"
	ReadingKun = "ja_kun"
)

// Character is one dictionary character. Literal is the character itself and
// is the key that readings and meanings refer back to. The numeric fields
// come from the misc block and are nil when the source omits them or carries
// text that does not parse as an integer.
type Character struct {
	Literal     string
	Grade       *int
	StrokeCount *int
	Freq        *int
	JLPT        *int
}

// Reading is a single pronunciation of a character. Type is ReadingOn or
// ReadingKun.
type Reading struct {
	Literal string
	Type    string
	Text    string
}

// Meaning is a single default-language gloss of a character. Glosses tagged
// with an explicit language attribute are discarded during parsing and never
// become Meaning records.
type Meaning struct {
	Literal string
	Text    string
}

// Entry is the parsed tuple for one character element: the character plus
// its retained readings and meanings, in document order.
type Entry struct {
	Character Character
	Readings  []Reading
	Meanings  []Meaning
}
