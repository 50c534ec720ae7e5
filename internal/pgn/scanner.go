// Package pgn scans PGN game collections and reports the tag pairs of each game
// to a game.Visitor. Movetext is skipped.
package pgn

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

const defaultBufferSize = 64 * 1024

// Scanner reads one PGN stream. A game starts at its first tag pair, or at
// movetext that has no tag pairs, and ends at the next tag pair following its
// movetext or at end of input.
type Scanner struct {
	r *bufio.Reader

	inGame     bool
	inMovetext bool
	inComment  bool

	line      []byte
	value     []byte
	malformed int
	bytesRead int64
}

// NewScanner returns a scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, defaultBufferSize)}
}

// Scan reports every game in the stream to v and returns the number of games
// seen. It stops at the first error from v or from the underlying reader, and
// checks ctx between games.
func (s *Scanner) Scan(ctx context.Context, v game.Visitor) (int, error) {
	games := 0
	for {
		line, err := s.readLine()
		if len(line) > 0 {
			ended, lineErr := s.handleLine(line, v)
			if ended {
				games++
				if ctxErr := ctx.Err(); ctxErr != nil {
					return games, ctxErr
				}
			}
			if lineErr != nil {
				return games, lineErr
			}
		}

		if err == io.EOF {
			if s.inGame {
				s.inGame = false
				if endErr := v.EndGame(); endErr != nil {
					return games, endErr
				}
				games++
			}
			return games, nil
		}
		if err != nil {
			return games, err
		}
	}
}

// Malformed returns how many tag pair lines could not be parsed.
func (s *Scanner) Malformed() int {
	return s.malformed
}

// BytesRead returns the number of input bytes consumed.
func (s *Scanner) BytesRead() int64 {
	return s.bytesRead
}

// readLine returns the next line without its line ending. Lines longer than the
// buffer are joined into s.line.
func (s *Scanner) readLine() ([]byte, error) {
	chunk, err := s.r.ReadSlice('\n')
	s.bytesRead += int64(len(chunk))
	if err == bufio.ErrBufferFull {
		s.line = append(s.line[:0], chunk...)
		for err == bufio.ErrBufferFull {
			chunk, err = s.r.ReadSlice('\n')
			s.bytesRead += int64(len(chunk))
			s.line = append(s.line, chunk...)
		}
		chunk = s.line
	}
	return bytes.TrimRight(chunk, "\r\n"), err
}

// handleLine processes one line and reports whether it ended a game.
func (s *Scanner) handleLine(line []byte, v game.Visitor) (bool, error) {
	if s.inComment {
		if rest := s.skipComment(line); rest != nil {
			s.scanMovetext(rest)
		}
		return false, nil
	}
	if line[0] == '%' {
		return false, nil
	}

	trimmed := bytes.TrimLeft(line, " \t")
	if len(trimmed) == 0 {
		return false, nil
	}

	if trimmed[0] != '[' {
		if !s.inGame {
			v.BeginGame()
			s.inGame = true
		}
		s.inMovetext = true
		s.scanMovetext(trimmed)
		return false, nil
	}

	ended := false
	if s.inMovetext {
		s.inGame = false
		s.inMovetext = false
		if err := v.EndGame(); err != nil {
			return true, err
		}
		ended = true
	}
	if !s.inGame {
		v.BeginGame()
		s.inGame = true
	}
	s.parseTags(trimmed, v)
	return ended, nil
}

// scanMovetext tracks brace comments that continue past the end of the line.
func (s *Scanner) scanMovetext(line []byte) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ';':
			return
		case '{':
			rest := s.skipComment(line[i+1:])
			if rest == nil {
				s.inComment = true
				return
			}
			i = len(line) - len(rest) - 1
		}
	}
}

// skipComment returns what follows the closing brace, or nil if the comment
// does not end on this line.
func (s *Scanner) skipComment(line []byte) []byte {
	j := bytes.IndexByte(line, '}')
	if j < 0 {
		s.inComment = true
		return nil
	}
	s.inComment = false
	return line[j+1:]
}

// parseTags reads every [Key "Value"] pair on the line.
func (s *Scanner) parseTags(line []byte, v game.Visitor) {
	for len(line) > 0 {
		if line[0] != '[' {
			s.malformed++
			return
		}
		key, value, rest, ok := s.parseTag(line[1:])
		if !ok {
			s.malformed++
			return
		}
		v.Header(key, value)
		line = bytes.TrimLeft(rest, " \t")
	}
}

func (s *Scanner) parseTag(b []byte) (key, value, rest []byte, ok bool) {
	b = bytes.TrimLeft(b, " \t")
	end := bytes.IndexAny(b, " \t\"")
	if end <= 0 {
		return nil, nil, nil, false
	}
	key = b[:end]
	b = bytes.TrimLeft(b[end:], " \t")
	if len(b) == 0 || b[0] != '"' {
		return nil, nil, nil, false
	}
	value, rest, ok = s.parseValue(b[1:])
	if !ok {
		return nil, nil, nil, false
	}
	rest = bytes.TrimLeft(rest, " \t")
	if len(rest) == 0 || rest[0] != ']' {
		return nil, nil, nil, false
	}
	return key, value, rest[1:], true
}

// parseValue reads a quoted string whose opening quote has been consumed.
// Values without escapes are returned in place.
func (s *Scanner) parseValue(b []byte) (value, rest []byte, ok bool) {
	end := bytes.IndexByte(b, '"')
	if end < 0 {
		return nil, nil, false
	}
	if bytes.IndexByte(b[:end], '\\') < 0 {
		return b[:end], b[end+1:], true
	}

	s.value = s.value[:0]
	for i := 0; i < len(b); i++ {
		switch c := b[i]; c {
		case '\\':
			i++
			if i == len(b) {
				return nil, nil, false
			}
			s.value = append(s.value, b[i])
		case '"':
			return s.value, b[i+1:], true
		default:
			s.value = append(s.value, c)
		}
	}
	return nil, nil, false
}
