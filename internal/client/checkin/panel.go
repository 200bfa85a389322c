// Package checkin holds the finished check-in recording and runs the
// explicit analyze call against the backend.
package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/client/api"
	"github.com/theravid/theravid/internal/client/capture"
	"github.com/theravid/theravid/internal/client/reveal"
	"github.com/theravid/theravid/internal/utils"
)

// Slot is a plain one-line display slot (the perceived-emotion summary).
type Slot interface {
	SetText(s string)
}

// Panel receives check-in artifacts from the dispatcher and exposes them for
// playback, download, and a single-shot analyze call.
type Panel struct {
	api     *api.Client
	reveal  *reveal.Revealer
	emotion Slot
	reply   reveal.Target
	log     *logrus.Entry

	mu       sync.Mutex
	artifact *capture.Artifact
	name     string
}

func NewPanel(client *api.Client, rv *reveal.Revealer, emotionSlot Slot, replySlot reveal.Target, log *logrus.Entry) *Panel {
	return &Panel{
		api:     client,
		reveal:  rv,
		emotion: emotionSlot,
		reply:   replySlot,
		log:     log,
	}
}

// Accept stores the finished artifact. The emotion and reply slots are left
// untouched until an explicit Analyze call.
func (p *Panel) Accept(a capture.Artifact) {
	p.mu.Lock()
	p.artifact = &a
	p.name = fmt.Sprintf("checkin-%d%s", time.Now().UnixMilli(), extFor(a.MimeType))
	p.mu.Unlock()

	p.log.WithField("bytes", len(a.Data)).Info("check-in recording ready")
}

// Artifact returns the current recording and its download name.
func (p *Panel) Artifact() (capture.Artifact, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.artifact == nil {
		return capture.Artifact{}, "", false
	}
	return *p.artifact, p.name, true
}

// Analyze posts the recording to /record. One attempt; on success the
// emotion slot is set and the reply is revealed incrementally, on failure
// the emotion slot is cleared and the error text is written directly.
func (p *Panel) Analyze(ctx context.Context) error {
	const op = "Panel.Analyze"

	p.mu.Lock()
	artifact := p.artifact
	name := p.name
	p.mu.Unlock()

	if artifact == nil {
		return utils.E(utils.CodeInvalidArgument, op, "record a check-in first", nil)
	}

	res, err := p.api.AnalyzeRecording(ctx, api.Clip{
		Name:     name,
		MimeType: artifact.MimeType,
		Data:     artifact.Data,
	})
	if err != nil {
		p.emotion.SetText("")
		p.reveal.Write(p.reply, utils.Message(err))
		return err
	}

	p.emotion.SetText(strings.Join(res.Emotions, ", "))
	p.reveal.Reveal(p.reply, res.Response)
	return nil
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
