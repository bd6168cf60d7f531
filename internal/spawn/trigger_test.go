package spawn

import (
	mrand "math/rand"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTrigger(minT, maxT int, spamWindow time.Duration, clk Clock) *MessageTrigger {
	return NewMessageTrigger(minT, maxT, spamWindow, clk, mrand.New(mrand.NewSource(42)))
}

func TestFiresExactlyAtThreshold(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(5, 5, 0, clk)

	for i := 0; i < 4; i++ {
		if tr.Offer(1, int64(i)) {
			t.Fatalf("fired after %d messages, threshold is 5", i+1)
		}
	}
	if !tr.Offer(1, 100) {
		t.Fatal("did not fire at the threshold")
	}

	snap, ok := tr.Explain(1)
	if !ok {
		t.Fatal("no snapshot after fire")
	}
	if snap.Accumulator != 0 || snap.Messages != 0 {
		t.Fatalf("state not reset after fire: %+v", snap)
	}
	if snap.LastSpawn.IsZero() {
		t.Fatal("last spawn not recorded")
	}
}

func TestNeverFiresTwiceWithoutReset(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(3, 3, 0, clk)

	fires := 0
	last := -1
	for i := 0; i < 30; i++ {
		if tr.Offer(1, int64(i)) {
			fires++
			if last >= 0 && i-last < 3 {
				t.Fatalf("fired at message %d and again at %d without a full accumulation", last, i)
			}
			last = i
		}
	}
	if fires != 10 {
		t.Fatalf("got %d fires over 30 messages with threshold 3, want 10", fires)
	}
}

func TestAccumulatorNeverDecreasesExceptOnFire(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(10, 10, 0, clk)

	prev := 0
	for i := 0; i < 25; i++ {
		fired := tr.Offer(1, int64(i))
		snap, _ := tr.Explain(1)
		if fired {
			if snap.Accumulator != 0 {
				t.Fatalf("accumulator %d after fire, want 0", snap.Accumulator)
			}
		} else if snap.Accumulator < prev {
			t.Fatalf("accumulator decreased %d -> %d without a fire", prev, snap.Accumulator)
		}
		prev = snap.Accumulator
	}
}

func TestThresholdRedrawnAndBounded(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(3, 10, 0, clk)

	seen := map[int]bool{}
	author := int64(0)
	for fires := 0; fires < 50; {
		author++
		if tr.Offer(1, author) {
			fires++
			snap, _ := tr.Explain(1)
			if snap.Threshold < 3 || snap.Threshold > 10 {
				t.Fatalf("threshold %d out of [3, 10]", snap.Threshold)
			}
			seen[snap.Threshold] = true
		}
	}
	if len(seen) < 2 {
		t.Fatalf("threshold looks constant across 50 fires: %v", seen)
	}
}

func TestSpamWindowDampensRepeatAuthor(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(100, 100, 5*time.Second, clk)

	tr.Offer(1, 7)
	for i := 0; i < 10; i++ {
		tr.Offer(1, 7) // same author, inside the window
	}
	snap, _ := tr.Explain(1)
	if snap.Accumulator != 1 {
		t.Fatalf("accumulator = %d, spam should not count", snap.Accumulator)
	}
	if snap.Messages != 11 {
		t.Fatalf("messages = %d, want all 11 observed", snap.Messages)
	}

	clk.advance(6 * time.Second)
	tr.Offer(1, 7)
	snap, _ = tr.Explain(1)
	if snap.Accumulator != 2 {
		t.Fatalf("accumulator = %d, message outside the window should count", snap.Accumulator)
	}
}

func TestExplainDoesNotMutate(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(5, 5, 0, clk)
	tr.Offer(1, 1)
	tr.Offer(1, 2)

	first, ok := tr.Explain(1)
	if !ok {
		t.Fatal("no snapshot")
	}
	for i := 0; i < 10; i++ {
		again, _ := tr.Explain(1)
		if again != first {
			t.Fatalf("Explain mutated state: %+v != %+v", again, first)
		}
	}
}

func TestExplainUnknownGuild(t *testing.T) {
	t.Parallel()

	tr := newTestTrigger(5, 5, 0, &fakeClock{now: time.Now()})
	if _, ok := tr.Explain(999); ok {
		t.Fatal("snapshot reported for a guild never seen")
	}
}

func TestConcurrentOffersNoLostIncrements(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(1_000_000, 1_000_000, 0, clk)

	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(author int64) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				tr.Offer(1, author)
			}
		}(int64(w + 1))
	}
	wg.Wait()

	snap, _ := tr.Explain(1)
	if snap.Messages != workers*perWorker {
		t.Fatalf("messages = %d, want %d", snap.Messages, workers*perWorker)
	}
}

func TestGuildsAreIndependent(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.UnixMilli(1_700_000_000)}
	tr := newTestTrigger(3, 3, 0, clk)

	tr.Offer(1, 1)
	tr.Offer(1, 2)
	tr.Offer(2, 1)

	a, _ := tr.Explain(1)
	b, _ := tr.Explain(2)
	if a.Accumulator != 2 || b.Accumulator != 1 {
		t.Fatalf("guild states bled into each other: %+v / %+v", a, b)
	}
}
