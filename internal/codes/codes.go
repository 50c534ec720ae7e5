// Package codes holds the static lookup tables used to minify categorical PGN
// tag values into short codes.
//
// Tables are built once at package initialization and never modified, so they
// are safe to read from any number of goroutines. A value missing from a table
// maps to an empty code.
package codes

import "strconv"

// Table maps a raw tag value to its short code.
type Table struct {
	name  string
	codes map[string][]byte
}

func newTable(name string, pairs map[string]string) Table {
	t := Table{name: name, codes: make(map[string][]byte, len(pairs))}
	for k, v := range pairs {
		t.codes[k] = []byte(v)
	}
	return t
}

// Lookup returns the code for value, or an empty slice if value is not in the
// table. The returned slice is shared and must not be modified.
func (t Table) Lookup(value []byte) []byte {
	if code, ok := t.codes[string(value)]; ok {
		return code
	}
	return nil
}

// Name returns the table name.
func (t Table) Name() string {
	return t.name
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.codes)
}

// Results codes the Result tag.
var Results = newTable("results", map[string]string{
	"1-0":     "W",
	"0-1":     "B",
	"1/2-1/2": "D",
})

// Titles codes the WhiteTitle and BlackTitle tags.
var Titles = newTable("titles", map[string]string{
	"GM":  "1",
	"IM":  "2",
	"FM":  "3",
	"CM":  "4",
	"NM":  "5",
	"WGM": "6",
	"WIM": "7",
	"WFM": "8",
	"WCM": "9",
	"WNM": "10",
	"LM":  "11",
	"BOT": "12",
})

// Terminations codes the Termination tag.
var Terminations = newTable("terminations", map[string]string{
	"Normal":           "0",
	"Time forfeit":     "1",
	"Abandoned":        "2",
	"Rules infraction": "3",
	"Unterminated":     "4",
})

// ECO codes opening classifications A00..E99 as 0..499.
var ECO = newTable("eco", ecoCodes())

// Chess960 codes the first rank of a Chess960 starting position, as it appears
// in the first field of the FEN tag, by its Scharnagl number 0..959.
var Chess960 = newTable("chess960", chess960Codes())

func ecoCodes() map[string]string {
	m := make(map[string]string, 500)
	for letter := 0; letter < 5; letter++ {
		for n := 0; n < 100; n++ {
			key := string(rune('A'+letter)) + twoDigits(n)
			m[key] = strconv.Itoa(letter*100 + n)
		}
	}
	return m
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// knightPlacements lists, for each of the ten knight codes, which two of the
// five squares left after bishops and queen hold the knights.
var knightPlacements = [10][2]int{
	{0, 1}, {0, 2}, {0, 3}, {0, 4},
	{1, 2}, {1, 3}, {1, 4},
	{2, 3}, {2, 4},
	{3, 4},
}

func chess960Codes() map[string]string {
	m := make(map[string]string, 960)
	for n := 0; n < 960; n++ {
		m[BackRank(n)] = strconv.Itoa(n)
	}
	return m
}

// BackRank returns the black back rank, lowercase and a-file first, of
// Chess960 start position n. n must be in [0, 960).
func BackRank(n int) string {
	var rank [8]byte

	// Light-squared bishop on b, d, f or h.
	rank[(n%4)*2+1] = 'b'
	n /= 4
	// Dark-squared bishop on a, c, e or g.
	rank[(n%4)*2] = 'b'
	n /= 4

	place := func(piece byte, nth int) {
		for i := range rank {
			if rank[i] != 0 {
				continue
			}
			if nth == 0 {
				rank[i] = piece
				return
			}
			nth--
		}
	}

	place('q', n%6)
	n /= 6

	knights := knightPlacements[n]
	// Place the second knight first so the first one's index is unaffected.
	place('n', knights[1])
	place('n', knights[0])

	place('r', 0)
	place('k', 0)
	place('r', 0)

	return string(rank[:])
}
