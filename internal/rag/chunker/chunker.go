// Package chunker splits document text into bounded, ordered chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Mode string

const (
	ModeSentence  Mode = "sentence"
	ModeParagraph Mode = "paragraph"
)

const (
	DefaultTargetSize = 800
	DefaultMinChars   = 10
)

var (
	sentenceRe  = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

// ParseMode validates a configured chunking mode
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeSentence, ModeParagraph:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("unknown chunk mode %q", raw)
	}
}

// Chunker accumulates sentence or paragraph units into chunks of at most
// targetSize characters. Chunks shorter than minChars are dropped.
type Chunker struct {
	mode       Mode
	targetSize int
	minChars   int
}

func New(mode Mode, targetSize, minChars int) *Chunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if minChars < 0 {
		minChars = DefaultMinChars
	}
	if mode == "" {
		mode = ModeSentence
	}

	return &Chunker{
		mode:       mode,
		targetSize: targetSize,
		minChars:   minChars,
	}
}

// Split splits text on sentence boundaries with the default floor
func Split(text string, targetSize int) []string {
	return New(ModeSentence, targetSize, DefaultMinChars).Split(text)
}

func (c *Chunker) Mode() Mode {
	return c.mode
}

// Split is deterministic and never returns a chunk below the floor.
// A text shorter than the floor yields no chunks.
func (c *Chunker) Split(text string) []string {
	units, sep := c.units(text)

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)

	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); utf8.RuneCountInString(chunk) >= c.minChars && chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, unit := range units {
		for _, piece := range splitLong(unit, c.targetSize) {
			pieceLen := utf8.RuneCountInString(piece)

			if bufLen > 0 && bufLen+len(sep)+pieceLen > c.targetSize {
				flush()
			}

			if bufLen > 0 {
				buf.WriteString(sep)
				bufLen += len(sep)
			}
			buf.WriteString(piece)
			bufLen += pieceLen
		}
	}

	if bufLen > 0 {
		flush()
	}

	return chunks
}

func (c *Chunker) units(text string) ([]string, string) {
	var raw []string
	sep := " "

	switch c.mode {
	case ModeParagraph:
		raw = paragraphRe.Split(text, -1)
		sep = "\n\n"
	default:
		raw = sentenceRe.FindAllString(text, -1)
	}

	units := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			units = append(units, u)
		}
	}

	return units, sep
}

// splitLong breaks a unit that alone exceeds limit at word boundaries,
// cutting single words only when they are longer than limit.
func splitLong(unit string, limit int) []string {
	if utf8.RuneCountInString(unit) <= limit {
		return []string{unit}
	}

	var (
		pieces []string
		cur    strings.Builder
		curLen int
	)

	for _, word := range strings.Fields(unit) {
		for utf8.RuneCountInString(word) > limit {
			if curLen > 0 {
				pieces = append(pieces, cur.String())
				cur.Reset()
				curLen = 0
			}
			head, tail := cutRunes(word, limit)
			pieces = append(pieces, head)
			word = tail
		}

		wordLen := utf8.RuneCountInString(word)
		if wordLen == 0 {
			continue
		}
		if curLen > 0 && curLen+1+wordLen > limit {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wordLen
	}

	if curLen > 0 {
		pieces = append(pieces, cur.String())
	}

	return pieces
}

func cutRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
