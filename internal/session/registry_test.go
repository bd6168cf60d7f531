package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
)

var brazil = ball.Ball{
	Id:         1,
	Country:    "Brazil",
	Rarity:     0.5,
	Enabled:    true,
	CatchNames: []string{"brasil"},
}

func acceptAll(ctx context.Context, s *Session, authorId int64) (*ball.Caught, error) {
	return &ball.Caught{PlayerId: authorId, BallId: s.Ball.Id, Country: s.Ball.Country}, nil
}

func TestOpenDuplicateKey(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	now := time.Now()
	if _, err := r.Open("msg-1", brazil, nil, 10, "chan", now); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Open("msg-1", brazil, nil, 10, "chan", now); !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Brazil ":               "brazil",
		"BRAZIL":                  "brazil",
		"Côte d’Ivoire": "côte d'ivoire",
		"“Quoted”":      `"quoted"`,
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAttemptNameMatching(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := brazil
	b.Translations = []string{"Brésil"}
	if _, err := r.Open("msg-1", b, nil, 10, "chan", time.Now()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"Brazil", "brazil", "BRAZIL ", "brasil", " brésil"} {
		res, _, err := r.Attempt(context.Background(), "msg-1", name, 1, func(ctx context.Context, s *Session, authorId int64) (*ball.Caught, error) {
			return nil, errors.New("not yet") // keep the session open across cases
		})
		if err == nil || res != ResultNone {
			t.Fatalf("attempt %q did not reach the win step: res=%v err=%v", name, res, err)
		}
	}

	res, _, err := r.Attempt(context.Background(), "msg-1", "Argentina", 1, acceptAll)
	if err != nil || res != ResultWrongName {
		t.Fatalf("wrong name: res=%v err=%v", res, err)
	}
}

func TestAttemptNoSuchSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	res, _, err := r.Attempt(context.Background(), "nope", "Brazil", 1, acceptAll)
	if err != nil || res != ResultNoSuchSession {
		t.Fatalf("res=%v err=%v, want NoSuchSession", res, err)
	}
}

func TestAttemptExactlyOnceAccepting(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Open("msg-1", brazil, nil, 10, "chan", time.Now()); err != nil {
		t.Fatal(err)
	}

	const attempts = 50
	var (
		winCalls int
		accepted int
		already  int
		other    int
		mu       sync.Mutex
		wg       sync.WaitGroup
	)

	win := func(ctx context.Context, s *Session, authorId int64) (*ball.Caught, error) {
		mu.Lock()
		winCalls++
		mu.Unlock()
		return &ball.Caught{PlayerId: authorId}, nil
	}

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(author int64) {
			defer wg.Done()
			res, c, err := r.Attempt(context.Background(), "msg-1", "brazil", author, win)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case ResultAccepted:
				accepted++
				if c == nil || c.PlayerId != author {
					t.Errorf("accepted catch attributed to the wrong caller: %+v", c)
				}
			case ResultAlreadyCaught:
				already++
			default:
				other++
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("accepted = %d, want exactly 1", accepted)
	}
	if already != attempts-1 {
		t.Fatalf("already caught = %d, want %d", already, attempts-1)
	}
	if other != 0 {
		t.Fatalf("unexpected results: %d", other)
	}
	if winCalls != 1 {
		t.Fatalf("win ran %d times, want 1", winCalls)
	}
}

func TestFailedPersistenceKeepsSessionWinnable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Open("msg-1", brazil, nil, 10, "chan", time.Now()); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("store down")
	res, c, err := r.Attempt(context.Background(), "msg-1", "brazil", 1, func(ctx context.Context, s *Session, authorId int64) (*ball.Caught, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) || res != ResultNone || c != nil {
		t.Fatalf("failed persist: res=%v c=%v err=%v", res, c, err)
	}

	res, c, err = r.Attempt(context.Background(), "msg-1", "brazil", 2, acceptAll)
	if err != nil || res != ResultAccepted || c == nil || c.PlayerId != 2 {
		t.Fatalf("retry after failed persist: res=%v c=%+v err=%v", res, c, err)
	}
}

func TestCloseAndSweep(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	now := time.Now()
	if _, err := r.Open("msg-1", brazil, nil, 10, "chan", now.Add(-30*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Open("msg-2", brazil, nil, 10, "chan", now); err != nil {
		t.Fatal(err)
	}

	if n := r.Sweep(now, 20*time.Minute); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	res, _, _ := r.Attempt(context.Background(), "msg-1", "brazil", 1, acceptAll)
	if res != ResultNoSuchSession {
		t.Fatalf("attempt on expired session: %v", res)
	}

	if !r.Close("msg-2") {
		t.Fatal("close returned false for an open session")
	}
	if r.Close("msg-2") {
		t.Fatal("close returned true twice")
	}
	res, _, _ = r.Attempt(context.Background(), "msg-2", "brazil", 1, acceptAll)
	if res != ResultNoSuchSession {
		t.Fatalf("attempt on closed session: %v", res)
	}
}

// Three callers arrive at once: two with acceptable spellings, one wrong.
// Exactly one of the first two wins, the other sees AlreadyCaught, and the
// wrong name always reads WrongName.
func TestSimultaneousMixedAttempts(t *testing.T) {
	t.Parallel()

	for round := 0; round < 20; round++ {
		r := NewRegistry()
		b := ball.Ball{Id: 1, Country: "Brazil", CatchNames: []string{"brasil"}}
		if _, err := r.Open("msg-1", b, nil, 10, "chan", time.Now()); err != nil {
			t.Fatal(err)
		}

		results := make([]Result, 3)
		var wg sync.WaitGroup
		for i, name := range []string{"BRAZIL ", "brasil", "Argentina"} {
			wg.Add(1)
			go func(slot int, candidate string) {
				defer wg.Done()
				res, _, err := r.Attempt(context.Background(), "msg-1", candidate, int64(slot+1), acceptAll)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				results[slot] = res
			}(i, name)
		}
		wg.Wait()

		if results[2] != ResultWrongName {
			t.Fatalf("wrong-name caller got %v", results[2])
		}
		gotAccepted := 0
		gotAlready := 0
		for _, res := range results[:2] {
			switch res {
			case ResultAccepted:
				gotAccepted++
			case ResultAlreadyCaught:
				gotAlready++
			}
		}
		if gotAccepted != 1 || gotAlready != 1 {
			t.Fatalf("matching callers got %v and %v, want one Accepted and one AlreadyCaught",
				results[0], results[1])
		}
	}
}
