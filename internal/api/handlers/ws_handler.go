package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	mongorepo "github.com/theravid/theravid/internal/repositories/mongo"
	"github.com/theravid/theravid/internal/services"
	"github.com/theravid/theravid/internal/utils"
)

// WSHandler streams clip processing results for one chat session. Clients
// push recorded chunks over the socket; workers publish transcript,
// analysis, and reply fragments back through Redis pub/sub.
type WSHandler struct {
	chats    mongorepo.ChatRepository
	clips    services.ClipService
	redis    *redis.Client
	stream   string
	upgrader websocket.Upgrader
}

func NewWSHandler(chats mongorepo.ChatRepository, clips services.ClipService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		chats:  chats,
		clips:  clips,
		redis:  rdb,
		stream: "clips:stream",
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type        string `json:"type"`
	ChunkIndex  int64  `json:"chunk_index"`
	VideoBase64 string `json:"video_base64"`
	VideoURL    string `json:"video_url"`
	MimeType    string `json:"mime_type"`
	Language    string `json:"language"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.ChatWS", "missing session_id", nil))
		return
	}

	if err := h.chats.EnsureSession(c.Request.Context(), sessionID, userID); err != nil {
		writeError(c, utils.E(utils.CodeInternal, "WSHandler.ChatWS", "failed to open session", err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	respCh := "chat:" + sessionID + ":response"
	statusCh := "chat:" + sessionID + ":status"

	pubsub := h.redis.Subscribe(ctx, respCh, statusCh)
	defer pubsub.Close()

	// reader: WS -> Redis stream (+ Mongo clip insert)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","error":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "video_chunk":
				if msg.ChunkIndex <= 0 {
					_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","error":"chunk_index must be > 0"}`))
					continue
				}

				var b64Ptr, urlPtr *string
				if msg.VideoBase64 != "" {
					b64Ptr = &msg.VideoBase64
				}
				if msg.VideoURL != "" {
					urlPtr = &msg.VideoURL
				}
				if b64Ptr == nil && urlPtr == nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","error":"video_base64 or video_url required"}`))
					continue
				}

				if _, err := h.clips.InsertClipChunk(ctx, sessionID, msg.ChunkIndex, msg.MimeType, urlPtr, b64Ptr); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","error":"failed to queue clip"}`))
					continue
				}

				fields := map[string]any{
					"session_id":  sessionID,
					"chunk_index": strconv.FormatInt(msg.ChunkIndex, 10),
					"mime_type":   msg.MimeType,
					"language":    msg.Language,
					"ts_unix":     strconv.FormatInt(time.Now().UTC().Unix(), 10),
				}
				if b64Ptr != nil {
					fields["video_base64"] = *b64Ptr
				}
				if urlPtr != nil {
					fields["video_url"] = *urlPtr
				}

				if err := h.redis.XAdd(ctx, &redis.XAddArgs{
					Stream: h.stream,
					Values: fields,
				}).Err(); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","error":"failed to enqueue clip"}`))
					continue
				}

				_ = h.redis.Publish(ctx, statusCh, `{"type":"status","status":"pending","message":"clip queued","chunk_index":`+strconv.FormatInt(msg.ChunkIndex, 10)+`}`).Err()

			case "close":
				return

			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","error":"unknown message type"}`))
			}
		}
	}()

	// writer: Redis pub/sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload expected JSON string)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
