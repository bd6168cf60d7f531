package ball

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Catalog is the process-wide registry of ball definitions and special
// variants. Reload swaps the whole generation atomically, so readers never
// observe a partially updated set and never block on a reload in progress.
type Catalog struct {
	snap atomic.Pointer[generation]
}

type generation struct {
	byId     map[BallId]Ball
	enabled  []Ball
	specials []Special
}

func NewCatalog() *Catalog {
	c := &Catalog{}
	c.snap.Store(&generation{byId: map[BallId]Ball{}})
	return c
}

// Reload replaces the current generation. An empty definition set is legal
// but makes spawning impossible until the next reload; callers should log it.
func (c *Catalog) Reload(balls []Ball, specials []Special) {
	g := &generation{
		byId:     make(map[BallId]Ball, len(balls)),
		specials: specials,
	}
	for _, b := range balls {
		g.byId[b.Id] = b
		if b.Enabled {
			g.enabled = append(g.enabled, b)
		}
	}
	c.snap.Store(g)
}

func (c *Catalog) GetById(id BallId) (Ball, bool) {
	b, ok := c.snap.Load().byId[id]
	return b, ok
}

// Enabled returns the definitions eligible for spawning. The slice is shared
// with the snapshot and must not be mutated.
func (c *Catalog) Enabled() []Ball {
	return c.snap.Load().enabled
}

func (c *Catalog) Specials() []Special {
	return c.snap.Load().specials
}

func (c *Catalog) Count() int { return len(c.snap.Load().byId) }

// FileSource is the pull-based catalog source backed by a JSON file, re-read
// on every reload.
type FileSource struct {
	Path string
}

func (f FileSource) Load(ctx context.Context) ([]Ball, []Special, error) {
	return LoadFile(f.Path)
}

type ballJSON struct {
	Id             int      `json:"id"`
	Key            string   `json:"key"`
	Country        string   `json:"country"`
	Rarity         float64  `json:"rarity"`
	Enabled        bool     `json:"enabled"`
	CatchNames     []string `json:"catchNames"`
	Translations   []string `json:"translations"`
	Image          string   `json:"wildCard"`
	MaxAttackBonus int      `json:"maxAttackBonus"`
	MaxHealthBonus int      `json:"maxHealthBonus"`
}

type specialJSON struct {
	Id          int     `json:"id"`
	Name        string  `json:"name"`
	Rarity      float64 `json:"rarity"`
	Start       string  `json:"start"` // RFC 3339, empty = open
	End         string  `json:"end"`
	AttackBonus *int    `json:"attackBonus"`
	HealthBonus *int    `json:"healthBonus"`
	CatchPhrase string  `json:"catchPhrase"`
}

type catalogJSON struct {
	Balls    []ballJSON    `json:"balls"`
	Specials []specialJSON `json:"specials"`
}

// LoadFile reads a catalog definition file. Validation mirrors what the
// admin panel enforces at edit time; a file that fails here is rejected
// wholesale so a reload never half-applies.
func LoadFile(path string) ([]Ball, []Special, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file catalogJSON
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, err
	}

	seenId := map[int]bool{}
	seenKey := map[string]bool{}
	balls := make([]Ball, 0, len(file.Balls))
	for i, bj := range file.Balls {
		if bj.Id <= 0 {
			return nil, nil, fmt.Errorf("non-positive id at index %d", i)
		}
		if seenId[bj.Id] {
			return nil, nil, fmt.Errorf("duplicate id %d", bj.Id)
		}
		if bj.Key == "" {
			return nil, nil, fmt.Errorf("missing key at id %d", bj.Id)
		}
		if seenKey[bj.Key] {
			return nil, nil, fmt.Errorf("duplicate key %q", bj.Key)
		}
		if bj.Country == "" {
			return nil, nil, fmt.Errorf("missing country at id %d", bj.Id)
		}
		if bj.Rarity <= 0 || bj.Rarity > 1 {
			return nil, nil, fmt.Errorf("rarity out of (0,1] at id %d", bj.Id)
		}
		seenId[bj.Id] = true
		seenKey[bj.Key] = true

		balls = append(balls, Ball{
			Id:             BallId(bj.Id),
			Key:            bj.Key,
			Country:        bj.Country,
			Rarity:         bj.Rarity,
			Enabled:        bj.Enabled,
			CatchNames:     bj.CatchNames,
			Translations:   bj.Translations,
			Image:          bj.Image,
			MaxAttackBonus: bj.MaxAttackBonus,
			MaxHealthBonus: bj.MaxHealthBonus,
		})
	}

	specials := make([]Special, 0, len(file.Specials))
	for i, sj := range file.Specials {
		if sj.Name == "" {
			return nil, nil, fmt.Errorf("missing special name at index %d", i)
		}
		if sj.Rarity < 0 || sj.Rarity > 1 {
			return nil, nil, fmt.Errorf("special rarity out of [0,1] for %q", sj.Name)
		}
		sp := Special{
			Id:          sj.Id,
			Name:        sj.Name,
			Rarity:      sj.Rarity,
			AttackBonus: sj.AttackBonus,
			HealthBonus: sj.HealthBonus,
			CatchPhrase: sj.CatchPhrase,
		}
		if sj.Start != "" {
			t, err := time.Parse(time.RFC3339, sj.Start)
			if err != nil {
				return nil, nil, fmt.Errorf("bad start time for special %q: %w", sj.Name, err)
			}
			sp.Start = &t
		}
		if sj.End != "" {
			t, err := time.Parse(time.RFC3339, sj.End)
			if err != nil {
				return nil, nil, fmt.Errorf("bad end time for special %q: %w", sj.Name, err)
			}
			sp.End = &t
		}
		specials = append(specials, sp)
	}

	return balls, specials, nil
}
