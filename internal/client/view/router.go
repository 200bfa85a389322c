// Package view is the hash-driven view switcher. It is thin; its one real
// job is triggering capture acquisition when the recorder view is entered.
package view

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Known view names.
const (
	Welcome     = "welcome"
	SignUp      = "signup"
	Login       = "login"
	Preferences = "preferences"
	Menu        = "menu"
	Profile     = "profile"
	Record      = "record"
	Chat        = "chat"
)

// Views is the full known set.
var Views = []string{Welcome, SignUp, Login, Preferences, Menu, Profile, Record, Chat}

type Router struct {
	def   string
	known map[string]struct{}
	log   *logrus.Entry

	mu      sync.Mutex
	current string
	show    func(view string)
	enter   map[string]func(ctx context.Context)
}

func NewRouter(defaultView string, views []string, log *logrus.Entry) *Router {
	known := make(map[string]struct{}, len(views))
	for _, v := range views {
		known[v] = struct{}{}
	}
	return &Router{
		def:   defaultView,
		known: known,
		log:   log,
		enter: map[string]func(context.Context){},
	}
}

// OnShow registers the render callback invoked on every navigation.
func (r *Router) OnShow(fn func(view string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.show = fn
}

// HandleEnter registers a side effect for entering a view.
func (r *Router) HandleEnter(view string, fn func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enter[view] = fn
}

// Navigate switches to the view addressed by hash. Unknown or absent hashes
// fall back to the default view. Returns the view actually shown.
func (r *Router) Navigate(ctx context.Context, hash string) string {
	view := strings.TrimPrefix(strings.TrimSpace(hash), "#")
	if _, ok := r.known[view]; !ok {
		view = r.def
	}

	r.mu.Lock()
	r.current = view
	show := r.show
	hook := r.enter[view]
	r.mu.Unlock()

	if show != nil {
		show(view)
	}
	if hook != nil {
		hook(ctx)
	}
	return view
}

// Current returns the view shown by the last Navigate.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return r.def
	}
	return r.current
}
