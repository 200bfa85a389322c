package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/utils"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

type fakeStream struct{}

func (fakeStream) Label() string { return "cam0" }

type fakeDevice struct {
	mu    sync.Mutex
	err   error
	opens int
}

func (d *fakeDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.err != nil {
		return nil, d.err
	}
	return fakeStream{}, nil
}

type fakeRecording struct {
	enc *fakeEncoder
}

func (r *fakeRecording) Stop(done func()) {
	if len(r.enc.tail) > 0 {
		r.enc.emit(r.enc.tail)
	}
	done()
}

type fakeEncoder struct {
	supported map[string]bool
	fail      bool
	tail      []byte

	emit    func([]byte)
	mime    string
	records int
}

func (e *fakeEncoder) Supports(mt string) bool { return e.supported[mt] }

func (e *fakeEncoder) Record(s Stream, mt string, emit func(chunk []byte)) (Recording, error) {
	e.records++
	if e.fail {
		return nil, errors.New("encoder init failed")
	}
	e.mime = mt
	e.emit = emit
	return &fakeRecording{enc: e}, nil
}

type sinkRecorder struct {
	mu        sync.Mutex
	artifacts []Artifact
	purposes  []Purpose
}

func (s *sinkRecorder) Dispatch(a Artifact, p Purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	s.purposes = append(s.purposes, p)
}

func newTestRecorder(enc *fakeEncoder, sink Sink) (*Recorder, *fakeDevice) {
	dev := &fakeDevice{}
	session := NewSession(dev, testLog(), nil)
	r := NewRecorder(session, enc, sink, testLog())
	return r, dev
}

func TestSessionAcquireIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	notices := 0
	s := NewSession(dev, testLog(), func(string) { notices++ })

	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if dev.opens != 1 {
		t.Fatalf("expected one device open, got %d", dev.opens)
	}
	if notices != 0 {
		t.Fatalf("unexpected notices: %d", notices)
	}
}

func TestSessionAcquireRetriesAfterFailure(t *testing.T) {
	dev := &fakeDevice{err: utils.E(utils.CodePermissionDenied, "dev", "permission denied", nil)}
	notices := 0
	s := NewSession(dev, testLog(), func(string) { notices++ })

	if _, err := s.Acquire(context.Background()); !utils.IsCode(err, utils.CodePermissionDenied) {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
	if s.Acquired() {
		t.Fatalf("session should stay unacquired after failure")
	}
	if notices != 1 {
		t.Fatalf("expected one user notice, got %d", notices)
	}

	dev.mu.Lock()
	dev.err = nil
	dev.mu.Unlock()

	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if dev.opens != 2 {
		t.Fatalf("expected two open attempts, got %d", dev.opens)
	}
}

func TestStartRejectsConflictingPurpose(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	sink := &sinkRecorder{}
	r, _ := newTestRecorder(enc, sink)

	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err := r.Start(context.Background(), PurposeChatReply)
	if !utils.IsCode(err, utils.CodeBusy) {
		t.Fatalf("expected BUSY, got %v", err)
	}
	if r.Active() != PurposeCheckIn {
		t.Fatalf("active purpose changed by rejected start: %v", r.Active())
	}

	// same purpose is a no-op guard, not a second init
	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("same-purpose start should be a no-op, got %v", err)
	}
	if enc.records != 1 {
		t.Fatalf("encoder initialized %d times, want 1", enc.records)
	}
	r.Stop()
}

func TestChunkOrderPreserved(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}, tail: []byte("c3")}
	sink := &sinkRecorder{}
	r, _ := newTestRecorder(enc, sink)

	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	enc.emit([]byte("c1"))
	enc.emit([]byte("c2"))
	r.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(sink.artifacts))
	}
	if got := sink.artifacts[0].Data; !bytes.Equal(got, []byte("c1c2c3")) {
		t.Fatalf("artifact = %q, want c1c2c3", got)
	}
	if sink.purposes[0] != PurposeCheckIn {
		t.Fatalf("artifact dispatched under %v", sink.purposes[0])
	}
	if r.Active() != PurposeNone {
		t.Fatalf("recorder not idle after stop")
	}
}

func TestChatReplyDispatchesToReplySink(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	sink := &sinkRecorder{}
	r, _ := newTestRecorder(enc, sink)

	if err := r.Start(context.Background(), PurposeChatReply); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	enc.emit([]byte("c1"))
	r.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.purposes) != 1 || sink.purposes[0] != PurposeChatReply {
		t.Fatalf("expected one chat-reply dispatch, got %v", sink.purposes)
	}
	if !bytes.Equal(sink.artifacts[0].Data, []byte("c1")) {
		t.Fatalf("artifact = %q, want c1", sink.artifacts[0].Data)
	}
}

func TestMimeNegotiationFirstSupportedWins(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{"video/webm;codecs=vp8,opus": true, "video/webm": true}}
	r, _ := newTestRecorder(enc, &sinkRecorder{})

	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if enc.mime != "video/webm;codecs=vp8,opus" {
		t.Fatalf("negotiated %q, want vp8", enc.mime)
	}
	r.Stop()
}

func TestMimeNegotiationFallsBackToDefault(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	r, _ := newTestRecorder(enc, &sinkRecorder{})

	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if enc.mime != "" {
		t.Fatalf("negotiated %q, want unconstrained default", enc.mime)
	}
	r.Stop()
}

func TestEncoderFailureReturnsToIdle(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}, fail: true}
	r, _ := newTestRecorder(enc, &sinkRecorder{})

	err := r.Start(context.Background(), PurposeCheckIn)
	if !utils.IsCode(err, utils.CodeEncoderUnsupported) {
		t.Fatalf("expected ENCODER_UNSUPPORTED, got %v", err)
	}
	if r.Active() != PurposeNone {
		t.Fatalf("recorder not idle after failed start")
	}

	enc.fail = false
	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("start after encoder failure: %v", err)
	}
	r.Stop()
}

func TestStartFailsWhenDeviceUnavailable(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	r, dev := newTestRecorder(enc, &sinkRecorder{})
	dev.err = utils.E(utils.CodeDeviceUnavailable, "dev", "no camera", nil)

	err := r.Start(context.Background(), PurposeCheckIn)
	if !utils.IsCode(err, utils.CodeDeviceUnavailable) {
		t.Fatalf("expected DEVICE_UNAVAILABLE, got %v", err)
	}
	if r.Active() != PurposeNone {
		t.Fatalf("recorder not idle after failed acquisition")
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	sink := &sinkRecorder{}
	r, _ := newTestRecorder(enc, sink)

	r.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.artifacts) != 0 {
		t.Fatalf("idle stop produced an artifact")
	}
}

func TestElapsedComputedFromWallClock(t *testing.T) {
	enc := &fakeEncoder{supported: map[string]bool{}}
	r, _ := newTestRecorder(enc, &sinkRecorder{})

	base := time.Unix(1000, 0)
	now := base
	var mu sync.Mutex
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r.Tick = time.Millisecond

	var clocks []string
	var cmu sync.Mutex
	r.OnElapsed = func(c string) {
		cmu.Lock()
		clocks = append(clocks, c)
		cmu.Unlock()
	}

	if err := r.Start(context.Background(), PurposeCheckIn); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mu.Lock()
	now = base.Add(65 * time.Second)
	mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		cmu.Lock()
		n := len(clocks)
		last := ""
		if n > 0 {
			last = clocks[n-1]
		}
		cmu.Unlock()
		if last == "01:05" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("elapsed clock never reached 01:05, last %q", last)
		}
		time.Sleep(time.Millisecond)
	}
	r.Stop()
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{65 * time.Second, "01:05"},
		{10 * time.Minute, "10:00"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.in); got != c.want {
			t.Fatalf("FormatElapsed(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
