package capture

import "github.com/sirupsen/logrus"

// CheckInSink receives a finished check-in artifact. The artifact is exposed
// for local playback and download and waits for an explicit analyze call.
type CheckInSink interface {
	Accept(a Artifact)
}

// ReplySender auto-sends a finished artifact as an in-chat video reply; no
// user confirmation step is involved.
type ReplySender interface {
	SendRecording(a Artifact)
}

// Dispatcher routes a finished artifact to the consumer matching the purpose
// the recording was started under. Pure routing, no state.
type Dispatcher struct {
	CheckIn CheckInSink
	Chat    ReplySender
	Log     *logrus.Entry
}

func (d *Dispatcher) Dispatch(a Artifact, p Purpose) {
	switch p {
	case PurposeCheckIn:
		if d.CheckIn != nil {
			d.CheckIn.Accept(a)
		}
	case PurposeChatReply:
		if d.Chat != nil {
			d.Chat.SendRecording(a)
		}
	default:
		if d.Log != nil {
			d.Log.WithField("purpose", p.String()).Warn("artifact dropped: no purpose")
		}
	}
}
