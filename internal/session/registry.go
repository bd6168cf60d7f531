package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
)

var ErrDuplicateSession = errors.New("catch session already open for this key")

type Result int

const (
	// ResultNone means the attempt matched but materializing the catch
	// failed; the session is still open and a retry may win.
	ResultNone Result = iota
	ResultNoSuchSession
	ResultWrongName
	ResultAlreadyCaught
	ResultAccepted
)

func (r Result) String() string {
	switch r {
	case ResultNoSuchSession:
		return "no such session"
	case ResultWrongName:
		return "wrong name"
	case ResultAlreadyCaught:
		return "already caught"
	case ResultAccepted:
		return "accepted"
	default:
		return "none"
	}
}

// Session is one live spawned-and-not-yet-caught ball, keyed by the id of
// the message announcing it.
type Session struct {
	mu sync.Mutex

	Key       string
	Ball      ball.Ball
	Special   *ball.Special
	GuildId   int64
	ChannelId string
	SpawnedAt time.Time

	names  map[string]struct{}
	caught bool
}

// Caught reports whether the session has been won. Racing attempts observe
// the flag under the session lock; this accessor is for display code only.
func (s *Session) Caught() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caught
}

// WinFunc materializes a successful catch (persistence). It runs with the
// session claimed; returning an error releases the claim so another attempt
// can still win.
type WinFunc func(ctx context.Context, s *Session, authorId int64) (*ball.Caught, error)

// Registry tracks every open catch session in the process. Sessions are not
// persisted; a restart forfeits in-flight catches.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open registers a new session under key. The acceptable name set is the
// ball's country plus its catch names and translations, normalized once.
func (r *Registry) Open(key string, b ball.Ball, sp *ball.Special, guildId int64, channelId string, now time.Time) (*Session, error) {
	names := make(map[string]struct{}, 1+len(b.CatchNames)+len(b.Translations))
	names[Normalize(b.Country)] = struct{}{}
	for _, n := range b.CatchNames {
		names[Normalize(n)] = struct{}{}
	}
	for _, n := range b.Translations {
		names[Normalize(n)] = struct{}{}
	}

	s := &Session{
		Key:       key,
		Ball:      b,
		Special:   sp,
		GuildId:   guildId,
		ChannelId: channelId,
		SpawnedAt: now,
		names:     names,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; ok {
		return nil, ErrDuplicateSession
	}
	r.sessions[key] = s
	return s, nil
}

// Attempt validates one catch attempt against the session keyed by key.
// Attempts serialize on the session, so of N concurrent attempts with a
// matching name exactly one runs win and observes ResultAccepted; the rest
// observe ResultAlreadyCaught. The caught flag is only set once win returns
// successfully, so a cancelled or failed persistence leaves the session
// winnable (err != nil, ResultNone).
func (r *Registry) Attempt(ctx context.Context, key, candidate string, authorId int64, win WinFunc) (Result, *ball.Caught, error) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	r.mu.Unlock()
	if !ok {
		return ResultNoSuchSession, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// the session may have been closed or swept while we waited for it
	r.mu.Lock()
	_, open := r.sessions[key]
	r.mu.Unlock()
	if !open {
		return ResultNoSuchSession, nil, nil
	}

	if _, ok := s.names[Normalize(candidate)]; !ok {
		return ResultWrongName, nil, nil
	}
	if s.caught {
		return ResultAlreadyCaught, nil, nil
	}

	caught, err := win(ctx, s, authorId)
	if err != nil {
		return ResultNone, nil, err
	}
	s.caught = true
	return ResultAccepted, caught, nil
}

// Close removes the session keyed by key. Later attempts see NoSuchSession.
func (r *Registry) Close(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; !ok {
		return false
	}
	delete(r.sessions, key)
	return true
}

// Sweep drops sessions older than ttl and returns how many were removed.
func (r *Registry) Sweep(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, s := range r.sessions {
		if now.Sub(s.SpawnedAt) >= ttl {
			delete(r.sessions, key)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Typographic quotes users paste from phones, folded to their ASCII forms.
var quoteReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
)

// Normalize folds a catch name for matching: trim, lowercase, fold quotes.
func Normalize(name string) string {
	return quoteReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}
