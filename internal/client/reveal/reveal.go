// Package reveal drives the incremental character-by-character display of
// asynchronous textual replies. Cancellation is cooperative: starting a new
// reveal on a target supersedes any in-flight one, there is no explicit
// cancel call.
package reveal

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Target is a text display slot.
type Target interface {
	Reset()
	Append(s string)
}

// DefaultInterval is the per-character typing cadence.
const DefaultInterval = 25 * time.Millisecond

type state struct {
	gen  uint64 // monotonically increasing, never reset
	live bool
}

type Revealer struct {
	interval time.Duration
	log      *logrus.Entry

	mu   sync.Mutex
	gens map[Target]*state
}

func New(interval time.Duration, log *logrus.Entry) *Revealer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Revealer{
		interval: interval,
		log:      log,
		gens:     map[Target]*state{},
	}
}

// Reveal clears target and types text into it one rune per interval. The
// reveal owns the target from this moment: any previously started reveal on
// the same target stops before its next append. Only the most recently
// started reveal ever completes.
func (r *Revealer) Reveal(target Target, text string) {
	r.mu.Lock()
	st := r.stateLocked(target)
	st.gen++
	st.live = true
	gen := st.gen
	target.Reset()
	r.mu.Unlock()

	go r.run(target, st, gen, []rune(text))
}

// Write replaces the target content immediately, bypassing the typing
// animation while still superseding any in-flight reveal.
func (r *Revealer) Write(target Target, text string) {
	r.mu.Lock()
	st := r.stateLocked(target)
	st.gen++
	st.live = false
	target.Reset()
	target.Append(text)
	r.mu.Unlock()
}

// Active reports whether a reveal is currently running on target.
func (r *Revealer) Active(target Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.gens[target]
	return ok && st.live
}

func (r *Revealer) stateLocked(target Target) *state {
	st, ok := r.gens[target]
	if !ok {
		st = &state{}
		r.gens[target] = st
	}
	return st
}

func (r *Revealer) run(target Target, st *state, gen uint64, runes []rune) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for _, ch := range runes {
		<-t.C
		// The currency check and the append are one critical section, so a
		// superseded reveal can never write after its successor's reset.
		r.mu.Lock()
		if st.gen != gen {
			r.mu.Unlock()
			return
		}
		target.Append(string(ch))
		r.mu.Unlock()
	}

	// Completion clears the token; the next reveal on this target is
	// indistinguishable from a fresh one.
	r.mu.Lock()
	if st.gen == gen {
		st.live = false
	}
	r.mu.Unlock()
}
