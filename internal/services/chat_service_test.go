package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	"github.com/theravid/theravid/internal/utils"
)

type fakeChatRepo struct {
	sessions map[string]string // session id -> user id
	messages []models.ChatMessage
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{sessions: map[string]string{}}
}

func (r *fakeChatRepo) EnsureSession(_ context.Context, sessionID, userID string) error {
	if _, ok := r.sessions[sessionID]; !ok {
		r.sessions[sessionID] = userID
	}
	return nil
}

func (r *fakeChatRepo) AppendMessage(_ context.Context, m *models.ChatMessage) error {
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeChatRepo) History(_ context.Context, sessionID string, _ int64) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newChatForTest(repo *fakeChatRepo) ChatService {
	return NewChatService(repo, nil, stt.NewMock(), llm.NewMock(), quietLog())
}

func TestSendTextMintsSession(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newChatForTest(repo)

	res, err := svc.Send(context.Background(), "", "", "hello there", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Session == "" {
		t.Fatal("expected a minted session id")
	}
	if res.Reply == "" {
		t.Fatal("expected a reply")
	}
	if len(res.History) != 2 {
		t.Fatalf("history should be user+assistant, got %d entries", len(res.History))
	}
	if res.History[0].Role != models.RoleMsgUser || res.History[1].Role != models.RoleMsgAssistant {
		t.Fatalf("unexpected roles: %+v", res.History)
	}
}

func TestSendReusesSession(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newChatForTest(repo)

	first, err := svc.Send(context.Background(), "", "", "first", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	second, err := svc.Send(context.Background(), first.Session, "", "second", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if second.Session != first.Session {
		t.Fatalf("session changed: %s -> %s", first.Session, second.Session)
	}
	if len(second.History) != 4 {
		t.Fatalf("history should accumulate, got %d entries", len(second.History))
	}
}

func TestSendClipAddsAnalysisNote(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newChatForTest(repo)

	clip := &ChatClip{FileName: "reply.webm", MimeType: "video/webm", Data: []byte("fake")}
	res, err := svc.Send(context.Background(), "", "u-1", "", clip)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var note, userMsg string
	for _, m := range res.History {
		switch m.Role {
		case models.RoleMsgSystem:
			note = m.Content
		case models.RoleMsgUser:
			userMsg = m.Content
		}
	}
	if !strings.HasPrefix(note, "[Video analysis]") {
		t.Fatalf("expected analysis note, history: %+v", res.History)
	}
	if !strings.Contains(note, "sentiment=") {
		t.Fatalf("analysis note incomplete: %q", note)
	}
	// chat replies never run facial analysis, so the emotions slot is empty
	if !strings.Contains(note, "emotions=[]") {
		t.Fatalf("chat clip note should carry no emotion labels: %q", note)
	}
	// transcript stands in for the missing text
	if userMsg == "" {
		t.Fatal("clip-only turn should carry the transcript as the user message")
	}
}

func TestSendRequiresTextOrClip(t *testing.T) {
	svc := newChatForTest(newFakeChatRepo())

	_, err := svc.Send(context.Background(), "", "", "   ", nil)
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty turn should be invalid, got %v", err)
	}
}

func TestHistoryEmptySession(t *testing.T) {
	svc := newChatForTest(newFakeChatRepo())

	out, err := svc.History(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("unknown session should yield an empty (non-nil) history, got %v", out)
	}
}
