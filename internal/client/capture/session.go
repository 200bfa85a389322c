package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/utils"
)

// Stream is an acquired camera/microphone stream. It is a page-scoped
// resource: acquired once, reused by every subsequent recording, never
// explicitly released.
type Stream interface {
	Label() string
}

// Device opens the underlying capture hardware. Implementations return
// errors coded PERMISSION_DENIED or DEVICE_UNAVAILABLE.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Session owns the zero-or-one active device stream.
type Session struct {
	mu     sync.Mutex
	device Device
	stream Stream
	notify func(string)
	log    *logrus.Entry
}

func NewSession(device Device, log *logrus.Entry, notify func(string)) *Session {
	return &Session{device: device, log: log, notify: notify}
}

// Acquire returns the existing stream handle or opens one. Idempotent: an
// already-held handle is returned without re-prompting. On failure the
// session stays unacquired, so a later attempt retries.
func (s *Session) Acquire(ctx context.Context) (Stream, error) {
	const op = "CaptureSession.Acquire"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return s.stream, nil
	}

	stream, err := s.device.Open(ctx)
	if err != nil {
		s.log.WithError(err).Warn("capture acquisition failed")
		if s.notify != nil {
			s.notify("Camera and microphone are unavailable. Check permissions and try again.")
		}
		var ae *utils.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, utils.E(utils.CodeDeviceUnavailable, op, "could not open capture device", err)
	}

	s.stream = stream
	s.log.WithField("stream", stream.Label()).Info("capture stream acquired")
	return stream, nil
}

// Acquired reports whether a stream handle is currently held.
func (s *Session) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}
