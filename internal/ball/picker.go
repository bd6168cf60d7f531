package ball

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	mrand "math/rand"
	"sync"
	"time"
)

var ErrNoSpawnableBall = errors.New("no enabled ball to spawn")

// Picker performs the weighted random draws for spawning: which ball
// appears, which special (if any) it carries, and the stat bonuses rolled
// on catch. Safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func NewPicker(rng *mrand.Rand) *Picker {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}
	return &Picker{rng: rng}
}

// PickBall draws one definition from the enabled set, weighted by rarity
// (rarity is a direct selection weight, so low-rarity balls appear less).
func (p *Picker) PickBall(enabled []Ball) (Ball, error) {
	if len(enabled) == 0 {
		return Ball{}, ErrNoSpawnableBall
	}
	weights := make([]float64, len(enabled))
	for i, b := range enabled {
		weights[i] = b.Rarity
	}
	i := p.weightedIndex(weights)
	if i < 0 {
		return Ball{}, ErrNoSpawnableBall
	}
	return enabled[i], nil
}

// PickSpecial draws the special variant for a spawn, or nil for a common
// spawn. Variants active at now compete against a virtual "common" outcome
// whose weight is the sum of (1 - rarity) over the active set, so a pool of
// mostly-common events keeps common spawns likely.
func (p *Picker) PickSpecial(candidates []Special, now time.Time) *Special {
	active := make([]*Special, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ActiveAt(now) {
			active = append(active, &candidates[i])
		}
	}
	if len(active) == 0 {
		return nil
	}

	commonWeight := 0.0
	weights := make([]float64, len(active)+1)
	for i, sp := range active {
		weights[i] = sp.Rarity
		commonWeight += 1 - sp.Rarity
	}
	// commonWeight may be zero (every active special has rarity 1); the
	// draw must tolerate it, the common outcome just becomes unreachable.
	if commonWeight > 0 {
		weights[len(active)] = commonWeight
	}

	i := p.weightedIndex(weights)
	if i < 0 || i == len(active) {
		return nil
	}
	return active[i]
}

// RollBonuses resolves the attack/health bonuses for a catch. Flat overrides
// on the special win; otherwise each bonus is an independent uniform draw in
// [-max, +max]. Per-ball caps take precedence over the global ones.
func (p *Picker) RollBonuses(b Ball, sp *Special, maxAttack, maxHealth int) (atk, hp int) {
	if b.MaxAttackBonus > 0 {
		maxAttack = b.MaxAttackBonus
	}
	if b.MaxHealthBonus > 0 {
		maxHealth = b.MaxHealthBonus
	}

	atk = p.rollBonus(maxAttack)
	hp = p.rollBonus(maxHealth)
	if sp != nil {
		if sp.AttackBonus != nil {
			atk = *sp.AttackBonus
		}
		if sp.HealthBonus != nil {
			hp = *sp.HealthBonus
		}
	}
	return atk, hp
}

func (p *Picker) rollBonus(max int) int {
	if max <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(2*max+1) - max
}

// weightedIndex draws one index with probability proportional to its weight.
// Zero and negative weights are unreachable rather than an error. Returns -1
// only when no weight is positive.
func (p *Picker) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	p.mu.Lock()
	roll := p.rng.Float64() * total
	p.mu.Unlock()

	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if roll < acc {
			return i
		}
	}
	// roll == total can land here through float rounding
	return last
}
