// Package generator produces synthetic lichess-style PGN games for benchmarks
// and for feeding the stream command.
package generator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/jaswdr/faker"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/codes"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// EventSource is the CloudEvent source of generated games.
const EventSource = "pgn2csv/generator"

// DefaultStart is the UTC time of the first generated game.
var DefaultStart = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// Config configures a Generator.
type Config struct {
	// Games is how many games WritePGN and Publish produce.
	Games int
	// Seed makes the output reproducible. Zero seeds from the clock.
	Seed int64
	// Chess960Ratio is the share of Chess960 games, between 0 and 1.
	Chess960Ratio float64
	// Start is the time of the first game. Zero means DefaultStart.
	Start time.Time
}

// Game is one generated game.
type Game struct {
	ID      string
	Variant bool
	Played  time.Time
	PGN     string
}

// Publisher sends CloudEvents to a topic.
type Publisher interface {
	ProduceEvent(ctx context.Context, topic string, e cloudevents.Event) error
}

// Generator generates fake lichess games. It is not safe for concurrent use.
type Generator struct {
	config Config
	faker  faker.Faker
	clock  time.Time
	logger *slog.Logger
}

// New creates a generator.
func New(config Config, logger *slog.Logger) *Generator {
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	if config.Start.IsZero() {
		config.Start = DefaultStart
	}
	return &Generator{
		config: config,
		faker:  faker.NewWithSeed(rand.NewSource(config.Seed)),
		clock:  config.Start.UTC(),
		logger: logger,
	}
}

type timeControl struct {
	base, increment int
}

var timeControls = []timeControl{
	{60, 0}, {120, 1}, {180, 0}, {180, 2}, {300, 0}, {300, 3},
	{600, 0}, {600, 5}, {900, 10}, {1800, 0}, {1800, 20},
}

type opening struct {
	eco, name string
}

var openings = []opening{
	{"A00", "Van't Kruijs Opening"},
	{"A40", "Queen's Pawn Game"},
	{"B01", "Scandinavian Defense"},
	{"B20", "Sicilian Defense"},
	{"B90", "Sicilian Defense: Najdorf Variation"},
	{"C00", "French Defense"},
	{"C20", "King's Pawn Game"},
	{"C50", "Italian Game"},
	{"C60", "Ruy Lopez"},
	{"D02", "Queen's Pawn Game: London System"},
	{"D06", "Queen's Gambit"},
	{"E60", "King's Indian Defense"},
}

var (
	titles       = []string{"GM", "IM", "FM", "CM", "NM", "WGM", "WIM", "WFM", "LM", "BOT"}
	terminations = []string{"Normal", "Normal", "Normal", "Time forfeit", "Time forfeit", "Abandoned", "Rules infraction"}
	results      = []string{"1-0", "0-1", "1-0", "0-1", "1/2-1/2"}
)

// Next generates the next game. Games are one to ninety seconds apart.
func (g *Generator) Next() Game {
	g.clock = g.clock.Add(time.Duration(g.faker.IntBetween(1, 90)) * time.Second)

	variant := g.chance(g.config.Chess960Ratio)
	id := g.faker.RandomStringWithLength(8)
	result := results[g.faker.IntBetween(0, len(results)-1)]

	var b strings.Builder
	tag := func(key, value string) {
		fmt.Fprintf(&b, "[%s \"%s\"]\n", key, value)
	}

	tc, correspondence := g.timeControl()
	tag("Event", g.event(tc, correspondence))
	tag("Site", "https://lichess.org/"+id)
	tag("White", g.username())
	tag("Black", g.username())
	tag("Result", result)
	tag("UTCDate", g.clock.Format("2006.01.02"))
	tag("UTCTime", g.clock.Format("15:04:05"))
	tag("WhiteElo", g.rating())
	tag("BlackElo", g.rating())
	if diff, ok := g.ratingDiff(); ok {
		tag("WhiteRatingDiff", diff)
		tag("BlackRatingDiff", negate(diff))
	}
	if g.percent(3) {
		tag("WhiteTitle", titles[g.faker.IntBetween(0, len(titles)-1)])
	}
	if g.percent(3) {
		tag("BlackTitle", titles[g.faker.IntBetween(0, len(titles)-1)])
	}
	if variant {
		tag("Variant", "Chess960")
	}
	if correspondence {
		tag("TimeControl", "-")
	} else {
		tag("TimeControl", fmt.Sprintf("%d+%d", tc.base, tc.increment))
	}
	if variant {
		tag("ECO", "?")
		tag("Opening", "?")
	} else {
		o := openings[g.faker.IntBetween(0, len(openings)-1)]
		tag("ECO", o.eco)
		tag("Opening", o.name)
	}
	tag("Termination", terminations[g.faker.IntBetween(0, len(terminations)-1)])
	if variant {
		tag("FEN", startFEN(g.faker.IntBetween(0, 959)))
		tag("SetUp", "1")
	}

	b.WriteString("\n1. e4 e5 2. Nf3 Nc6 ")
	b.WriteString(result)
	b.WriteString("\n")

	return Game{ID: id, Variant: variant, Played: g.clock, PGN: b.String()}
}

// WritePGN writes the configured number of games to w, separated by blank
// lines.
func (g *Generator) WritePGN(ctx context.Context, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	for i := 0; i < g.config.Games; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		gm := g.Next()
		if _, err := io.WriteString(bw, gm.PGN+"\n"); err != nil {
			return i, fmt.Errorf("failed to write game %s: %w", gm.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return g.config.Games, fmt.Errorf("failed to flush games: %w", err)
	}

	g.logger.Info("games generated", "games", g.config.Games, "seed", g.config.Seed)
	return g.config.Games, nil
}

// Publish sends the configured number of games to topic, one CloudEvent per
// game.
func (g *Generator) Publish(ctx context.Context, p Publisher, topic string) (int, error) {
	for i := 0; i < g.config.Games; i++ {
		e, err := Event(g.Next())
		if err != nil {
			return i, err
		}
		if err := p.ProduceEvent(ctx, topic, e); err != nil {
			return i, err
		}
	}

	g.logger.Info("games published",
		"games", g.config.Games,
		"topic", topic,
		"seed", g.config.Seed,
	)
	return g.config.Games, nil
}

// Event wraps gm in a CloudEvent. The event id is derived from the game URL so
// republishing a game yields the same id.
func Event(gm Game) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lichess.org/"+gm.ID)).String())
	e.SetSource(EventSource)
	e.SetType(game.EventTypeGames)
	e.SetSubject(gm.ID)
	e.SetTime(gm.Played)
	if gm.Variant {
		e.SetExtension("variant", "chess960")
	} else {
		e.SetExtension("variant", "standard")
	}
	if err := e.SetData(game.ContentTypePGN, []byte(gm.PGN)); err != nil {
		return e, fmt.Errorf("failed to set event data: %w", err)
	}
	return e, nil
}

func (g *Generator) timeControl() (timeControl, bool) {
	if g.percent(2) {
		return timeControl{}, true
	}
	return timeControls[g.faker.IntBetween(0, len(timeControls)-1)], false
}

// event names the game the way lichess does, by speed and rated flag, and
// sometimes as part of an arena tournament.
func (g *Generator) event(tc timeControl, correspondence bool) string {
	speed := "Correspondence"
	if !correspondence {
		switch estimate := tc.base + 40*tc.increment; {
		case estimate < 30:
			speed = "UltraBullet"
		case estimate < 180:
			speed = "Bullet"
		case estimate < 480:
			speed = "Blitz"
		case estimate < 1500:
			speed = "Rapid"
		default:
			speed = "Classical"
		}
	}

	rated := "Rated"
	if g.percent(15) {
		rated = "Casual"
	}
	if rated == "Rated" && g.percent(10) {
		return fmt.Sprintf("Rated %s tournament https://lichess.org/tournament/%s", speed, g.faker.RandomStringWithLength(8))
	}
	return fmt.Sprintf("%s %s game", rated, speed)
}

func (g *Generator) username() string {
	name := g.faker.Internet().User()
	if g.percent(30) {
		name += fmt.Sprint(g.faker.IntBetween(1, 999))
	}
	return name
}

// rating returns a Glicko rating, provisional ones with a trailing "?".
func (g *Generator) rating() string {
	r := fmt.Sprint(g.faker.IntBetween(800, 2900))
	if g.percent(5) {
		r += "?"
	}
	return r
}

func (g *Generator) ratingDiff() (string, bool) {
	if g.percent(15) {
		return "", false
	}
	d := g.faker.IntBetween(-25, 25)
	if d >= 0 {
		return fmt.Sprintf("+%d", d), true
	}
	return fmt.Sprint(d), true
}

func negate(diff string) string {
	switch {
	case diff == "+0":
		return "+0"
	case strings.HasPrefix(diff, "+"):
		return "-" + diff[1:]
	default:
		return "+" + strings.TrimPrefix(diff, "-")
	}
}

// startFEN returns the FEN of Chess960 start position n.
func startFEN(n int) string {
	black := codes.BackRank(n)
	return black + "/pppppppp/8/8/8/8/PPPPPPPP/" + strings.ToUpper(black) + " w KQkq - 0 1"
}

func (g *Generator) percent(p int) bool {
	return g.faker.IntBetween(1, 100) <= p
}

func (g *Generator) chance(ratio float64) bool {
	if ratio <= 0 {
		return false
	}
	if ratio >= 1 {
		return true
	}
	return g.faker.IntBetween(1, 1000) <= int(ratio*1000)
}
