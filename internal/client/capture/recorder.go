package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/utils"
)

// Purpose identifies which downstream consumer a recording serves.
type Purpose int

const (
	PurposeNone Purpose = iota
	PurposeCheckIn
	PurposeChatReply
)

func (p Purpose) String() string {
	switch p {
	case PurposeCheckIn:
		return "check-in"
	case PurposeChatReply:
		return "chat-reply"
	default:
		return "none"
	}
}

// Encoder is the platform capture primitive that turns a stream into encoded
// media fragments. The core never encodes anything itself.
type Encoder interface {
	Supports(mimeType string) bool
	// Record begins encoding the stream. Fragments are delivered through
	// emit in capture order; emit may be called from the encoder's own
	// goroutine.
	Record(stream Stream, mimeType string, emit func(chunk []byte)) (Recording, error)
}

// Recording is one active encode pass.
type Recording interface {
	// Stop flushes any buffered fragment through the emit callback and then
	// invokes done exactly once.
	Stop(done func())
}

// Artifact is the finalized output of one recording: the ordered
// concatenation of every emitted fragment, tagged with the negotiated
// encoding.
type Artifact struct {
	Data     []byte
	MimeType string
}

// Sink receives finished artifacts together with the purpose the recording
// was started under.
type Sink interface {
	Dispatch(artifact Artifact, purpose Purpose)
}

// DefaultMimeTypes is the encoding negotiation order. First supported option
// wins; the empty string is the unconstrained default.
var DefaultMimeTypes = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
	"",
}

const defaultTick = 250 * time.Millisecond

// Recorder is the state machine over {idle, recording(check-in),
// recording(chat-reply)}. At most one purpose is active at any instant.
type Recorder struct {
	session *Session
	enc     Encoder
	sink    Sink
	log     *logrus.Entry

	// Configure before the first Start; not safe to change afterwards.
	MimeTypes []string
	Tick      time.Duration
	OnElapsed func(clock string)

	now func() time.Time

	mu       sync.Mutex
	purpose  Purpose
	mime     string
	chunks   [][]byte
	rec      Recording
	stopTick chan struct{}
}

func NewRecorder(session *Session, enc Encoder, sink Sink, log *logrus.Entry) *Recorder {
	return &Recorder{
		session: session,
		enc:     enc,
		sink:    sink,
		log:     log,
		now:     time.Now,
	}
}

// Start begins a recording for the given purpose. A start while a recording
// for a different purpose is active fails with BUSY; a start for the same
// purpose is a no-op guard against double initialization.
func (r *Recorder) Start(ctx context.Context, purpose Purpose) error {
	const op = "Recorder.Start"

	if purpose == PurposeNone {
		return utils.E(utils.CodeInvalidArgument, op, "a recording purpose is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.purpose == purpose {
		return nil
	}
	if r.purpose != PurposeNone {
		return utils.E(utils.CodeBusy, op, "another recording is in progress, stop it first", nil)
	}

	stream, err := r.session.Acquire(ctx)
	if err != nil {
		return utils.E(utils.CodeDeviceUnavailable, op, "camera is not ready", err)
	}

	r.chunks = nil
	mime := r.negotiate()

	rec, err := r.enc.Record(stream, mime, r.appendChunk)
	if err != nil {
		return utils.E(utils.CodeEncoderUnsupported, op, "recorder could not be initialized", err)
	}

	r.rec = rec
	r.mime = mime
	r.purpose = purpose
	r.stopTick = make(chan struct{})

	go r.runTimer(r.stopTick, r.now())

	r.log.WithFields(logrus.Fields{
		"purpose": purpose.String(),
		"mime":    mime,
	}).Info("recording started")
	return nil
}

// Stop ends the active recording, if any. The capture primitive flushes its
// tail fragment and the finished artifact is handed to the sink; stop while
// idle is a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	rec := r.rec
	if rec == nil {
		r.mu.Unlock()
		return
	}
	r.rec = nil
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
	r.mu.Unlock()

	rec.Stop(r.finalize)
}

// Active returns the purpose currently recorded under, or PurposeNone.
func (r *Recorder) Active() Purpose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.purpose
}

func (r *Recorder) negotiate() string {
	prefs := r.MimeTypes
	if len(prefs) == 0 {
		prefs = DefaultMimeTypes
	}
	for _, mt := range prefs {
		if mt == "" {
			break
		}
		if r.enc.Supports(mt) {
			return mt
		}
	}
	return ""
}

// appendChunk is the fragment handler registered with the encoder. Chunks
// are append-only for the life of one recording and frozen at finalize.
func (r *Recorder) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	r.mu.Lock()
	if r.purpose != PurposeNone {
		r.chunks = append(r.chunks, chunk)
	}
	r.mu.Unlock()
}

func (r *Recorder) finalize() {
	r.mu.Lock()
	purpose := r.purpose
	if purpose == PurposeNone {
		r.mu.Unlock()
		return
	}

	size := 0
	for _, c := range r.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	artifact := Artifact{Data: data, MimeType: r.mime}

	r.purpose = PurposeNone
	r.chunks = nil
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"purpose": purpose.String(),
		"bytes":   len(artifact.Data),
	}).Info("recording finished")

	r.sink.Dispatch(artifact, purpose)
}

// runTimer republishes the elapsed clock on every tick. Elapsed time is
// recomputed from the start timestamp, not accumulated per tick, so it does
// not drift under scheduling jitter.
func (r *Recorder) runTimer(stop <-chan struct{}, startAt time.Time) {
	tick := r.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	r.publishElapsed(startAt)
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			r.publishElapsed(startAt)
		}
	}
}

func (r *Recorder) publishElapsed(startAt time.Time) {
	if r.OnElapsed == nil {
		return
	}
	r.OnElapsed(FormatElapsed(r.now().Sub(startAt)))
}

// FormatElapsed renders a duration as mm:ss.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
