package ball

import "time"

type BallId int

// Ball is one catchable collectible definition. Definitions are immutable
// for a catalog generation; Reload replaces the whole set.
type Ball struct {
	Id           BallId
	Key          string // stable string id if we decide to rename the ball for any reason
	Country      string
	Rarity       float64 // selection weight in (0,1], lower = rarer
	Enabled      bool
	CatchNames   []string // alternate names accepted by a catch attempt
	Translations []string
	Image        string
	// Per-ball bonus caps; 0 means the globally configured cap applies.
	MaxAttackBonus int
	MaxHealthBonus int
}

// Special is a time-windowed variant applied on top of a spawned ball.
// A nil Start or End means the window is open on that side.
type Special struct {
	Id          int
	Name        string
	Rarity      float64 // weight in [0,1] against the virtual "common" outcome
	Start       *time.Time
	End         *time.Time
	AttackBonus *int // flat override, nil = roll normally
	HealthBonus *int
	CatchPhrase string
}

func (s *Special) ActiveAt(now time.Time) bool {
	if s.Start != nil && now.Before(*s.Start) {
		return false
	}
	if s.End != nil && now.After(*s.End) {
		return false
	}
	return true
}

// Caught is the canonical record of a successful catch, used by the game
// core and persisted by the store.
type Caught struct {
	Id          int64
	GuildId     int64
	PlayerId    int64
	BallId      BallId
	Country     string
	SpecialId   int    // 0 = no special
	CatchPhrase string // from the special, display only, not persisted
	AttackBonus int
	HealthBonus int
	FirstOwned  bool
	SpawnedAt   time.Time
	CaughtAt    time.Time
}
