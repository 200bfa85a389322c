package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/theravid/theravid/internal/analysis"
	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	mongorepo "github.com/theravid/theravid/internal/repositories/mongo"
	"github.com/theravid/theravid/internal/utils"
)

// historyWindow bounds how many past turns feed the LLM prompt.
const historyWindow = 20

// ChatClip is a video reply attached to a chat turn.
type ChatClip struct {
	FileName string
	MimeType string
	Data     []byte
}

// ChatResult is the POST /chat response body.
type ChatResult struct {
	Session string               `json:"session"`
	Reply   string               `json:"reply"`
	History []models.ChatMessage `json:"history"`
}

type ChatService interface {
	Send(ctx context.Context, sessionID, userID, text string, clip *ChatClip) (*ChatResult, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
}

type chatService struct {
	chats  mongorepo.ChatRepository
	convos ConversationService
	stt    stt.Provider
	llm    llm.Provider
	log    *logrus.Logger
}

func NewChatService(
	chats mongorepo.ChatRepository,
	convos ConversationService,
	sttP stt.Provider,
	llmP llm.Provider,
	log *logrus.Logger,
) ChatService {
	return &chatService{
		chats:  chats,
		convos: convos,
		stt:    sttP,
		llm:    llmP,
		log:    log,
	}
}

// Send appends the turn to the session and returns the assistant reply with
// the full updated history. A missing session id starts a new session.
func (s *chatService) Send(ctx context.Context, sessionID, userID, text string, clip *ChatClip) (*ChatResult, error) {
	const op = "ChatService.Send"

	text = strings.TrimSpace(text)
	if text == "" && clip == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no text or file provided", nil)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.chats.EnsureSession(ctx, sessionID, userID); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to ensure session", err)
	}

	var meta map[string]any

	if clip != nil {
		transcript, _, err := s.stt.Transcribe(ctx, clip.Data, "")
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
		}

		// Chat replies are transcription-only: no facial analysis here, so
		// the conversation never judges the user by their face. The
		// emotions slot in the note stays empty on purpose.
		sentiment := analysis.Classify(transcript)
		meta = map[string]any{"sentiment": sentiment, "emotions": []string{}}

		note := fmt.Sprintf("[Video analysis] emotions=[] sentiment=%s", sentiment)
		if err := s.append(ctx, sessionID, userID, models.RoleMsgSystem, note, nil); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to record analysis", err)
		}

		if text == "" {
			text = transcript
		}
	}

	if err := s.append(ctx, sessionID, userID, models.RoleMsgUser, text, meta); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record message", err)
	}

	history, err := s.chats.History(ctx, sessionID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load history", err)
	}

	reply, err := llm.Answer(ctx, s.llm, chatPrompt(history))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to generate reply", err)
	}

	if err := s.append(ctx, sessionID, userID, models.RoleMsgAssistant, reply, nil); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record reply", err)
	}

	history = append(history, models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleMsgAssistant,
		Content:   reply,
		TS:        time.Now().UTC().UnixMilli(),
	})

	return &ChatResult{Session: sessionID, Reply: reply, History: history}, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	const op = "ChatService.History"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session is required", nil)
	}
	out, err := s.chats.History(ctx, sessionID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load history", err)
	}
	if out == nil {
		out = []models.ChatMessage{}
	}
	return out, nil
}

// append writes the turn to Mongo and mirrors it into the Postgres
// conversation log for analytics. The mirror is best-effort.
func (s *chatService) append(ctx context.Context, sessionID, userID, role, content string, meta map[string]any) error {
	if err := s.chats.AppendMessage(ctx, &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		TS:        time.Now().UTC().UnixMilli(),
	}); err != nil {
		return err
	}

	if s.convos != nil && userID != "" {
		var metaJSON []byte
		if meta != nil {
			metaJSON, _ = json.Marshal(meta)
		}
		if _, err := s.convos.Append(ctx, userID, sessionID, role, content, nil, metaJSON); err != nil {
			s.log.WithError(err).Debug("conversation mirror failed")
		}
	}
	return nil
}

func chatPrompt(history []models.ChatMessage) string {
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}

	var b strings.Builder
	b.WriteString("You are a warm, supportive wellbeing companion in an ongoing conversation. ")
	b.WriteString("Continue the dialogue naturally.\n\n")
	for _, m := range history[start:] {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("assistant:")
	return b.String()
}
