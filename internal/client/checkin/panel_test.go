package checkin

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
	"github.com/theravid/theravid/internal/client/reveal"
	"github.com/theravid/theravid/internal/utils"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

type textSlot struct {
	mu sync.Mutex
	s  string
	// set tracks whether SetText was ever called, to tell "cleared" apart
	// from "untouched"
	set bool
}

func (s *textSlot) SetText(x string) {
	s.mu.Lock()
	s.s = x
	s.set = true
	s.mu.Unlock()
}

func (s *textSlot) Reset() {
	s.mu.Lock()
	s.s = ""
	s.mu.Unlock()
}

func (s *textSlot) Append(x string) {
	s.mu.Lock()
	s.s += x
	s.mu.Unlock()
}

func (s *textSlot) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func newTestPanel(handler http.HandlerFunc) (*Panel, *textSlot, *textSlot, func()) {
	srv := httptest.NewServer(handler)
	client := api.New(srv.URL, func() string { return "" }, testLog())
	emotion := &textSlot{}
	reply := &textSlot{}
	p := NewPanel(client, reveal.New(time.Millisecond, testLog()), emotion, reply, testLog())
	return p, emotion, reply, srv.Close
}

func TestAcceptLeavesSlotsUntouched(t *testing.T) {
	p, emotion, reply, closeSrv := newTestPanel(func(w http.ResponseWriter, r *http.Request) {})
	defer closeSrv()

	p.Accept(capture.Artifact{Data: []byte("c1c2"), MimeType: "video/webm"})

	a, name, ok := p.Artifact()
	if !ok || string(a.Data) != "c1c2" {
		t.Fatalf("artifact not stored: %v %q", ok, a.Data)
	}
	if name == "" {
		t.Fatalf("download name not synthesized")
	}
	if emotion.set || reply.String() != "" {
		t.Fatalf("slots touched before analyze: emotion=%q reply=%q", emotion.String(), reply.String())
	}
}

func TestAnalyzeWithoutRecording(t *testing.T) {
	p, _, _, closeSrv := newTestPanel(func(w http.ResponseWriter, r *http.Request) {})
	defer closeSrv()

	err := p.Analyze(context.Background())
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestAnalyzePopulatesBothSlots(t *testing.T) {
	p, emotion, reply, closeSrv := newTestPanel(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"emotions": []string{"happy", "calm"},
			"response": "Keep it up.",
		})
	})
	defer closeSrv()

	p.Accept(capture.Artifact{Data: []byte("clip"), MimeType: "video/webm"})
	if err := p.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if emotion.String() != "happy, calm" {
		t.Fatalf("emotion slot = %q", emotion.String())
	}
	deadline := time.Now().Add(2 * time.Second)
	for reply.String() != "Keep it up." {
		if time.Now().After(deadline) {
			t.Fatalf("reply never revealed, slot = %q", reply.String())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAnalyzeFailureWritesErrorDirectly(t *testing.T) {
	p, emotion, reply, closeSrv := newTestPanel(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"analysis failed","detail":"no faces found"}`, http.StatusInternalServerError)
	})
	defer closeSrv()

	p.Accept(capture.Artifact{Data: []byte("clip"), MimeType: "video/webm"})
	if err := p.Analyze(context.Background()); err == nil {
		t.Fatalf("expected analyze error")
	}

	if emotion.String() != "" || !emotion.set {
		t.Fatalf("emotion slot not cleared: %q", emotion.String())
	}
	// written directly, no animation: full text immediately
	if reply.String() != "no faces found" {
		t.Fatalf("reply slot = %q, want direct error text", reply.String())
	}
}
