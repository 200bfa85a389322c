// Package chat keeps the rendered conversation in sync with the backend:
// optimistic local rows first, canonical server history as the single source
// of truth once it arrives.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/client/api"
	"github.com/theravid/theravid/internal/client/capture"
	"github.com/theravid/theravid/internal/client/reveal"
	"github.com/theravid/theravid/internal/client/store"
	"github.com/theravid/theravid/internal/utils"
)

// Row is one visible chat entry. Rendering derives from these values, never
// the other way around.
type Row struct {
	Role    string
	Content string
	Pending bool
	Failed  bool
	Note    string // shown as tooltip on failed rows
}

// View renders the full visible history. The rows passed in are the complete
// state; implementations must not merge with what they rendered before.
type View interface {
	Render(rows []Row)
}

const (
	sessionKey = "chatSession"

	// videoPlaceholder is the fixed optimistic row content for video replies.
	videoPlaceholder = "[video message]"
)

// Synchronizer owns the session id, the optimistic row list, and the
// canonical history. The visible history is always canonical ++ pending.
type Synchronizer struct {
	api    *api.Client
	store  store.KV
	view   View
	reveal *reveal.Revealer
	reply  reveal.Target
	notify func(string)
	log    *logrus.Entry

	mu        sync.Mutex
	canonical []api.Message
	pending   []*Row
}

func NewSynchronizer(client *api.Client, kv store.KV, view View, rv *reveal.Revealer, replySlot reveal.Target, notify func(string), log *logrus.Entry) *Synchronizer {
	return &Synchronizer{
		api:    client,
		store:  kv,
		view:   view,
		reveal: rv,
		reply:  replySlot,
		notify: notify,
		log:    log,
	}
}

// SessionID returns the persisted chat session id, minting one on first use.
// The id lives until the profile's local state is cleared.
func (s *Synchronizer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.store.Get(sessionKey); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	if err := s.store.Set(sessionKey, id); err != nil {
		s.log.WithError(err).Warn("session id not persisted")
	}
	return id
}

// SendText renders the optimistic user row, then issues exactly one /chat
// request and reconciles against its result.
func (s *Synchronizer) SendText(ctx context.Context, text string) error {
	const op = "Synchronizer.SendText"

	text = strings.TrimSpace(text)
	if text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "message text is empty", nil)
	}

	row := s.renderOptimistic(text)
	resp, err := s.api.SendMessage(ctx, s.SessionID(), text, nil)
	return s.reconcile(row, resp, err)
}

// SendRecording wraps a finished artifact into a file payload and sends it as
// a video-bearing chat message without further user action. It is the
// dispatcher's ChatReply sink.
func (s *Synchronizer) SendRecording(a capture.Artifact) {
	clip := &api.Clip{
		Name:     fmt.Sprintf("reply-%d%s", time.Now().UnixMilli(), extFor(a.MimeType)),
		MimeType: a.MimeType,
		Data:     a.Data,
	}

	row := s.renderOptimistic(videoPlaceholder)
	resp, err := s.api.SendMessage(context.Background(), s.SessionID(), "", clip)
	_ = s.reconcile(row, resp, err)
}

// LoadHistory hydrates the view from any existing server history. Absence of
// history or a failed request is tolerated silently.
func (s *Synchronizer) LoadHistory(ctx context.Context) {
	history, err := s.api.History(ctx, s.SessionID())
	if err != nil {
		s.log.WithError(err).Debug("history hydration skipped")
		return
	}
	if history == nil {
		return
	}

	s.mu.Lock()
	s.canonical = history
	rows := s.rowsLocked()
	s.mu.Unlock()
	s.view.Render(rows)
}

// Rows returns the current visible history.
func (s *Synchronizer) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowsLocked()
}

func (s *Synchronizer) renderOptimistic(content string) *Row {
	s.mu.Lock()
	row := &Row{Role: "user", Content: content, Pending: true}
	s.pending = append(s.pending, row)
	rows := s.rowsLocked()
	s.mu.Unlock()

	s.view.Render(rows)
	return row
}

// reconcile applies one send's outcome. A canonical history fully replaces
// the rendered state; a failure leaves the optimistic row in place, marked.
func (s *Synchronizer) reconcile(row *Row, resp *api.ChatResponse, err error) error {
	s.mu.Lock()
	if err != nil {
		row.Pending = false
		row.Failed = true
		row.Note = utils.Message(err)
		rows := s.rowsLocked()
		s.mu.Unlock()

		s.view.Render(rows)
		if s.notify != nil {
			s.notify("Message failed to send.")
		}
		return err
	}

	if resp.History != nil {
		s.canonical = resp.History
		s.dropPendingLocked(row)
	} else {
		row.Pending = false
	}
	rows := s.rowsLocked()
	s.mu.Unlock()

	s.view.Render(rows)

	if resp.Reply != "" && s.reveal != nil && s.reply != nil {
		s.reveal.Reveal(s.reply, resp.Reply)
	}
	return nil
}

func (s *Synchronizer) rowsLocked() []Row {
	rows := make([]Row, 0, len(s.canonical)+len(s.pending))
	for _, m := range s.canonical {
		rows = append(rows, Row{Role: m.Role, Content: m.Content})
	}
	for _, p := range s.pending {
		rows = append(rows, *p)
	}
	return rows
}

func (s *Synchronizer) dropPendingLocked(row *Row) {
	for i, p := range s.pending {
		if p == row {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func extFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "mp4"):
		return ".mp4"
	default:
		return ".bin"
	}
}
