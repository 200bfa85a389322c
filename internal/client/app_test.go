package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/client/api"
	"github.com/theravid/theravid/internal/client/capture"
	"github.com/theravid/theravid/internal/client/chat"
	"github.com/theravid/theravid/internal/client/checkin"
	"github.com/theravid/theravid/internal/client/reveal"
	"github.com/theravid/theravid/internal/client/view"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeStream struct{}

func (fakeStream) Label() string { return "cam0" }

type fakeDevice struct{ opens int }

func (d *fakeDevice) Open(ctx context.Context) (capture.Stream, error) {
	d.opens++
	return fakeStream{}, nil
}

type fakeRecording struct{ enc *fakeEncoder }

func (r *fakeRecording) Stop(done func()) { done() }

type fakeEncoder struct {
	emit func([]byte)
}

func (e *fakeEncoder) Supports(mt string) bool { return true }

func (e *fakeEncoder) Record(s capture.Stream, mt string, emit func(chunk []byte)) (capture.Recording, error) {
	e.emit = emit
	return &fakeRecording{enc: e}, nil
}

type slot struct {
	mu sync.Mutex
	s  string
}

func (s *slot) Reset()          { s.mu.Lock(); s.s = ""; s.mu.Unlock() }
func (s *slot) Append(x string) { s.mu.Lock(); s.s += x; s.mu.Unlock() }
func (s *slot) SetText(x string) {
	s.mu.Lock()
	s.s = x
	s.mu.Unlock()
}

type chatView struct {
	mu      sync.Mutex
	renders [][]chat.Row
}

func (v *chatView) Render(rows []chat.Row) {
	v.mu.Lock()
	cp := make([]chat.Row, len(rows))
	copy(cp, rows)
	v.renders = append(v.renders, cp)
	v.mu.Unlock()
}

func (v *chatView) last() []chat.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return nil
	}
	return v.renders[len(v.renders)-1]
}

type fakeUI struct {
	mu       sync.Mutex
	notices  []string
	views    []string
	elapsed  []string
	chatV    *chatView
	replyS   *slot
	emotionS *slot
	checkinS *slot
}

func newFakeUI() *fakeUI {
	return &fakeUI{chatV: &chatView{}, replyS: &slot{}, emotionS: &slot{}, checkinS: &slot{}}
}

func (u *fakeUI) Notify(msg string) {
	u.mu.Lock()
	u.notices = append(u.notices, msg)
	u.mu.Unlock()
}

func (u *fakeUI) ShowView(name string) {
	u.mu.Lock()
	u.views = append(u.views, name)
	u.mu.Unlock()
}

func (u *fakeUI) ElapsedChanged(clock string) {
	u.mu.Lock()
	u.elapsed = append(u.elapsed, clock)
	u.mu.Unlock()
}

func (u *fakeUI) ChatView() chat.View             { return u.chatV }
func (u *fakeUI) ChatReplySlot() reveal.Target    { return u.replyS }
func (u *fakeUI) EmotionSlot() checkin.Slot       { return u.emotionS }
func (u *fakeUI) CheckinReplySlot() reveal.Target { return u.checkinS }

func newTestApp(t *testing.T, handler http.Handler) (*App, *fakeUI, *fakeEncoder, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	ui := newFakeUI()
	enc := &fakeEncoder{}
	app, err := New(Config{BaseURL: srv.URL, TypeSpeed: time.Millisecond}, &fakeDevice{}, enc, ui, testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return app, ui, enc, srv.Close
}

func TestEnteringRecorderViewAcquiresCapture(t *testing.T) {
	app, _, _, closeSrv := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer closeSrv()

	if app.Capture.Acquired() {
		t.Fatalf("capture acquired before entering recorder view")
	}
	app.Navigate(context.Background(), "#record")
	if !app.Capture.Acquired() {
		t.Fatalf("entering recorder view did not acquire capture")
	}
}

func TestChatReplyRecordingAutoSends(t *testing.T) {
	var sawFile bool
	var mu sync.Mutex
	app, ui, enc, closeSrv := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseMultipartForm(1 << 20)
		if _, _, err := r.FormFile("file"); err == nil {
			mu.Lock()
			sawFile = true
			mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Reply:   "Thanks.",
			History: []api.Message{{Role: "user", Content: "(video)"}, {Role: "assistant", Content: "Thanks."}},
		})
	}))
	defer closeSrv()

	if err := app.Recorder.Start(context.Background(), capture.PurposeChatReply); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	enc.emit([]byte("clip"))
	app.Recorder.Stop()

	// the dispatcher sends synchronously through the fake encoder's Stop
	mu.Lock()
	ok := sawFile
	mu.Unlock()
	if !ok {
		t.Fatalf("video payload never reached /chat")
	}

	rows := ui.chatV.last()
	if len(rows) != 2 || rows[1].Role != "assistant" {
		t.Fatalf("chat rows after auto-send: %+v", rows)
	}
}

func TestProfileUnauthorizedRedirectsToLogin(t *testing.T) {
	app, _, _, closeSrv := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
	}))
	defer closeSrv()

	if _, err := app.Profile(context.Background()); err == nil {
		t.Fatalf("expected profile error")
	}
	if app.Router.Current() != view.Login {
		t.Fatalf("not redirected to sign-in, current view %q", app.Router.Current())
	}
}

func TestSignOutClearsToken(t *testing.T) {
	var lastAuth string
	var mu sync.Mutex
	app, _, _, closeSrv := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastAuth = r.Header.Get("Authorization")
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(api.Me{ID: "u1"})
	}))
	defer closeSrv()

	app.SetToken("tok-1")
	if _, err := app.Profile(context.Background()); err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	mu.Lock()
	got := lastAuth
	mu.Unlock()
	if got != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", got)
	}

	app.SignOut()
	if _, err := app.Profile(context.Background()); err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	mu.Lock()
	got = lastAuth
	mu.Unlock()
	if got != "" {
		t.Fatalf("token survived sign-out: %q", got)
	}
}
