package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Owner identifies whose timeline is requested and carries the credential
// used to reach that user's remote event store.
type Owner struct {
	UserID string
	Token  string
}

// APIFactory builds the remote event store client for one owner.
type APIFactory func(owner Owner) EventAPI

// Registry keeps one Timeline per (user, day) in memory. Timelines that have
// not been touched for the idle TTL are dropped by Sweep; remote calls
// still in flight settle on the dropped instance, which stays retired until
// they have.
type Registry struct {
	mu        sync.Mutex
	timelines map[string]*Timeline
	retired   []*Timeline

	factory APIFactory
	opts    TimelineOptions
	loc     *time.Location
	idleTTL time.Duration
}

// NewRegistry creates a Registry. loc decides where each day starts.
func NewRegistry(factory APIFactory, opts TimelineOptions, loc *time.Location, idleTTL time.Duration) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		timelines: make(map[string]*Timeline),
		factory:   factory,
		opts:      opts,
		loc:       loc,
		idleTTL:   idleTTL,
	}
}

// Location returns the zone days are resolved in.
func (r *Registry) Location() *time.Location {
	return r.loc
}

// Today returns midnight of the current day.
func (r *Registry) Today() time.Time {
	return StartOfDay(r.opts.Now(), r.loc)
}

// Get returns the owner's timeline for day, loading it from the remote
// store on first use.
func (r *Registry) Get(ctx context.Context, owner Owner, day time.Time) (*Timeline, error) {
	day = StartOfDay(day, r.loc)
	key := registryKey(owner.UserID, day)

	r.mu.Lock()
	tl, ok := r.timelines[key]
	r.mu.Unlock()
	if ok {
		return tl, nil
	}

	tl = NewTimeline(day, r.factory(owner), r.opts)
	if err := tl.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have loaded the same day meanwhile; keep the first.
	if existing, ok := r.timelines[key]; ok {
		return existing, nil
	}
	r.timelines[key] = tl
	return tl, nil
}

// Lookup returns an already loaded timeline without touching the remote store.
func (r *Registry) Lookup(userID string, day time.Time) (*Timeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tl, ok := r.timelines[registryKey(userID, StartOfDay(day, r.loc))]
	return tl, ok
}

// Reload drops the cached timeline so the next Get fetches the day again.
// Pending remote calls of the dropped timeline still settle on it.
func (r *Registry) Reload(userID string, day time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(userID, StartOfDay(day, r.loc))
	if tl, ok := r.timelines[key]; ok {
		delete(r.timelines, key)
		r.retired = append(r.retired, tl)
	}
}

// Sweep drops timelines idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, tl := range r.timelines {
		if now.Sub(tl.LastUsed()) > r.idleTTL {
			delete(r.timelines, key)
			r.retired = append(r.retired, tl)
			removed++
		}
	}
	r.retired = slices.DeleteFunc(r.retired, func(tl *Timeline) bool { return !tl.Saving() })
	return removed
}

// Run sweeps idle timelines every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				slog.Debug("swept idle timelines", slog.Int("count", n))
			}
		}
	}
}

// Drain waits for the remote calls of every cached or retired timeline to
// settle.
func (r *Registry) Drain() {
	r.mu.Lock()
	all := make([]*Timeline, 0, len(r.timelines)+len(r.retired))
	for _, tl := range r.timelines {
		all = append(all, tl)
	}
	all = append(all, r.retired...)
	r.mu.Unlock()

	for _, tl := range all {
		tl.Wait()
	}
}

func registryKey(userID string, day time.Time) string {
	return fmt.Sprintf("%s/%s", userID, day.Format(DateLayout))
}
