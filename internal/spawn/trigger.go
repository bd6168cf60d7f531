package spawn

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Trigger decides, per inbound guild message, whether a ball should spawn
// now. Implementations are selected at construction time; the rest of the
// pipeline only sees this interface.
type Trigger interface {
	// Offer records one qualifying message and reports whether a spawn
	// fires. A firing offer resets the guild's state.
	Offer(guildId, authorId int64) bool
	// Explain returns a read-only snapshot of the guild's state for
	// operator diagnostics. It never mutates state.
	Explain(guildId int64) (Snapshot, bool)
}

// Snapshot is the operator-facing view of one guild's trigger state.
type Snapshot struct {
	GuildId     int64
	Accumulator int
	Threshold   int
	Messages    int // total observed since last spawn, spam included
	LastSpawn   time.Time
}

func (s Snapshot) String() string {
	last := "never"
	if !s.LastSpawn.IsZero() {
		last = s.LastSpawn.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("accumulator %d/%d, %d messages since last spawn, last spawn %s",
		s.Accumulator, s.Threshold, s.Messages, last)
}

type guildState struct {
	mu          sync.Mutex
	accumulator int
	threshold   int
	messages    int
	lastSpawn   time.Time
	lastAuthor  int64
	lastCounted time.Time
}

// MessageTrigger fires once a guild has accumulated enough counted
// messages. The threshold is redrawn uniformly in [minThreshold,
// maxThreshold] after every fire so the cadence stays unpredictable.
// Repeated messages from one author inside the spam window are observed
// but not counted.
type MessageTrigger struct {
	mu     sync.RWMutex
	guilds map[int64]*guildState

	rngMu sync.Mutex
	rng   *mrand.Rand

	minThreshold int
	maxThreshold int
	spamWindow   time.Duration
	clk          Clock
}

func NewMessageTrigger(minThreshold, maxThreshold int, spamWindow time.Duration, clk Clock, rng *mrand.Rand) *MessageTrigger {
	if clk == nil {
		clk = RealClock{}
	}
	if minThreshold < 1 {
		minThreshold = 1
	}
	if maxThreshold < minThreshold {
		maxThreshold = minThreshold
	}
	if rng == nil {
		seed := func() int64 {
			var b [8]byte
			if _, err := rand.Read(b[:]); err == nil {
				return int64(binary.LittleEndian.Uint64(b[:]))
			}
			return time.Now().UnixNano()
		}()
		rng = mrand.New(mrand.NewSource(seed))
	}

	return &MessageTrigger{
		guilds:       make(map[int64]*guildState),
		rng:          rng,
		minThreshold: minThreshold,
		maxThreshold: maxThreshold,
		spamWindow:   spamWindow,
		clk:          clk,
	}
}

func (t *MessageTrigger) Offer(guildId, authorId int64) bool {
	g := t.state(guildId)
	now := t.clk.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.messages++

	spam := authorId == g.lastAuthor && t.spamWindow > 0 &&
		!g.lastCounted.IsZero() && now.Sub(g.lastCounted) < t.spamWindow
	if !spam {
		g.accumulator++
		g.lastAuthor = authorId
		g.lastCounted = now
	}

	if g.accumulator < g.threshold {
		return false
	}

	g.accumulator = 0
	g.messages = 0
	g.threshold = t.drawThreshold()
	g.lastSpawn = now
	g.lastAuthor = 0
	g.lastCounted = time.Time{}
	return true
}

func (t *MessageTrigger) Explain(guildId int64) (Snapshot, bool) {
	t.mu.RLock()
	g, ok := t.guilds[guildId]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		GuildId:     guildId,
		Accumulator: g.accumulator,
		Threshold:   g.threshold,
		Messages:    g.messages,
		LastSpawn:   g.lastSpawn,
	}, true
}

func (t *MessageTrigger) state(guildId int64) *guildState {
	t.mu.RLock()
	g, ok := t.guilds[guildId]
	t.mu.RUnlock()
	if ok {
		return g
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok = t.guilds[guildId]; ok {
		return g
	}
	g = &guildState{threshold: t.drawThreshold()}
	t.guilds[guildId] = g
	return g
}

func (t *MessageTrigger) drawThreshold() int {
	if t.minThreshold == t.maxThreshold {
		return t.minThreshold
	}
	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	return t.minThreshold + t.rng.Intn(t.maxThreshold-t.minThreshold+1)
}
