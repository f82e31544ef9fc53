package kanjidic

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ProgressInterval is the record cadence at which ParseAll invokes its
// progress callback.
const ProgressInterval = 100

// errMalformed marks a structural problem confined to a single character
// element. Every parse function consumes its element to the closing tag even
// on this error, so the stream stays aligned and the parser moves on to the
// next character. Only decoder-level errors abort the whole parse.
var errMalformed = errors.New("malformed character element")

// Element and attribute names from the KANJIDIC2 DTD that the parser cares
// about. Everything else in the document is skipped wholesale.
const (
	elemRoot           = "kanjidic2"
	elemCharacter      = "character"
	elemLiteral        = "literal"
	elemMisc           = "misc"
	elemGrade          = "grade"
	elemStrokeCount    = "stroke_count"
	elemFreq           = "freq"
	elemJLPT           = "jlpt"
	elemReadingMeaning = "reading_meaning"
	elemRMGroup        = "rmgroup"
	elemReading        = "reading"
	elemMeaning        = "meaning"

	attrReadingType = "r_type"
	attrMeaningLang = "m_lang"
)

// Parser streams Entry values out of a KANJIDIC2 document.
//
// Each character element is consumed exactly once, including its closing
// tag, before Next returns; a malformed element is drained to its end and
// counted in Skipped rather than surfaced as an error. Errors from the
// underlying decoder (truncated input, bad markup) are fatal because the
// decoder cannot resynchronize after them.
type Parser struct {
	dec     *xml.Decoder
	skipped int
}

// NewParser returns a parser reading the XML document from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{dec: xml.NewDecoder(r)}
}

// Skipped reports how many malformed character elements have been dropped so
// far.
func (p *Parser) Skipped() int {
	return p.skipped
}

// Next returns the next character entry in document order, or io.EOF once
// the stream is exhausted. Characters with no literal are silently dropped,
// as are malformed elements.
func (p *Parser) Next() (*Entry, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case elemRoot:
			// Descend into the document root.
		case elemCharacter:
			entry, err := p.parseCharacter()
			if err != nil {
				if errors.Is(err, errMalformed) {
					p.skipped++
					continue
				}
				return nil, err
			}
			if entry == nil {
				continue
			}
			return entry, nil
		default:
			// The header and anything unexpected at this level.
			if err := p.dec.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

// parseCharacter consumes one character element whose start tag has already
// been read. On every non-fatal return path the element has been fully
// consumed, closing tag included. A nil, nil return means the element had no
// literal and produces no entry.
func (p *Parser) parseCharacter() (*Entry, error) {
	var entry Entry
	malformed := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemLiteral:
				text, err := p.text()
				if err != nil {
					if !errors.Is(err, errMalformed) {
						return nil, err
					}
					malformed = true
					continue
				}
				entry.Character.Literal = text
			case elemMisc:
				if err := p.parseMisc(&entry.Character); err != nil {
					if !errors.Is(err, errMalformed) {
						return nil, err
					}
					malformed = true
				}
			case elemReadingMeaning:
				if err := p.parseReadingMeaning(&entry); err != nil {
					if !errors.Is(err, errMalformed) {
						return nil, err
					}
					malformed = true
				}
			default:
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if malformed {
				return nil, errMalformed
			}
			lit := entry.Character.Literal
			if lit == "" {
				return nil, nil
			}
			for i := range entry.Readings {
				entry.Readings[i].Literal = lit
			}
			for i := range entry.Meanings {
				entry.Meanings[i].Literal = lit
			}
			return &entry, nil
		}
	}
}

// parseMisc consumes the misc block, filling the character's numeric fields.
// Real dictionaries list alternate stroke counts after the accepted one, so
// only the first stroke_count element is kept.
func (p *Parser) parseMisc(c *Character) error {
	haveStrokes := false
	malformed := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v *int
			var err error
			switch t.Name.Local {
			case elemGrade, elemStrokeCount, elemFreq, elemJLPT:
				v, err = p.intValue()
			default:
				err = p.dec.Skip()
			}
			if err != nil {
				if !errors.Is(err, errMalformed) {
					return err
				}
				malformed = true
				continue
			}
			switch t.Name.Local {
			case elemGrade:
				c.Grade = v
			case elemStrokeCount:
				if !haveStrokes {
					c.StrokeCount = v
					haveStrokes = true
				}
			case elemFreq:
				c.Freq = v
			case elemJLPT:
				c.JLPT = v
			}
		case xml.EndElement:
			if malformed {
				return errMalformed
			}
			return nil
		}
	}
}

// parseReadingMeaning consumes the reading_meaning block. Only the first
// rmgroup contributes records; later groups and the nanori name readings
// that follow them are skipped.
func (p *Parser) parseReadingMeaning(e *Entry) error {
	seenGroup := false
	malformed := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == elemRMGroup && !seenGroup {
				seenGroup = true
				if err := p.parseRMGroup(e); err != nil {
					if !errors.Is(err, errMalformed) {
						return err
					}
					malformed = true
				}
				continue
			}
			if err := p.dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if malformed {
				return errMalformed
			}
			return nil
		}
	}
}

// parseRMGroup collects the readings and meanings of one rmgroup in document
// order. Readings survive only with an on or kun type; meanings survive only
// without a language attribute, which leaves the default-language glosses.
func (p *Parser) parseRMGroup(e *Entry) error {
	malformed := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemReading:
				rtype := attrValue(t, attrReadingType)
				text, err := p.text()
				if err != nil {
					if !errors.Is(err, errMalformed) {
						return err
					}
					malformed = true
					continue
				}
				if (rtype == ReadingOn || rtype == ReadingKun) && text != "" {
					e.Readings = append(e.Readings, Reading{Type: rtype, Text: text})
				}
			case elemMeaning:
				tagged := hasAttr(t, attrMeaningLang)
				text, err := p.text()
				if err != nil {
					if !errors.Is(err, errMalformed) {
						return err
					}
					malformed = true
					continue
				}
				if !tagged && text != "" {
					e.Meanings = append(e.Meanings, Meaning{Text: text})
				}
			default:
				if err := p.dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if malformed {
				return errMalformed
			}
			return nil
		}
	}
}

// text consumes a text-only element, closing tag included, and returns its
// character data. Child markup inside the element makes the entry malformed;
// the child is drained so the element is still fully consumed.
func (p *Parser) text() (string, error) {
	var sb strings.Builder
	malformed := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := p.dec.Skip(); err != nil {
				return "", err
			}
			malformed = true
		case xml.EndElement:
			if malformed {
				return "", errMalformed
			}
			return sb.String(), nil
		}
	}
}

// intValue consumes a text-only element and parses it as a base-10 integer.
// Missing or non-numeric text yields nil rather than an error; these fields
// are optional in the source data.
func (p *Parser) intValue() (*int, error) {
	text, err := p.text()
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil, nil
	}
	return &n, nil
}

func attrValue(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func hasAttr(start xml.StartElement, name string) bool {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// ParseAll reads every character entry from r. The optional progress
// callback receives the running entry count every ProgressInterval entries
// and once more with the final count when the stream ends. The skipped count
// reports malformed character elements that were dropped along the way.
func ParseAll(r io.Reader, progress func(count int)) (entries []Entry, skipped int, err error) {
	p := NewParser(r)
	for {
		e, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, p.skipped, fmt.Errorf("parsing dictionary: %w", err)
		}
		entries = append(entries, *e)
		if progress != nil && len(entries)%ProgressInterval == 0 {
			progress(len(entries))
		}
	}
	if progress != nil {
		progress(len(entries))
	}
	return entries, p.skipped, nil
}
