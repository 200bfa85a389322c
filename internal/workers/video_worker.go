package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/theravid/theravid/internal/analysis"
	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/emotion"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	"github.com/theravid/theravid/internal/services"
)

// VideoWorkerPool consumes queued clip chunks from a Redis stream, runs the
// analysis pipeline, and publishes incremental results to per-session
// channels for the websocket layer to relay.
type VideoWorkerPool struct {
	Redis      *redis.Client
	Clips      services.ClipService
	NumWorkers int

	STT      stt.Provider
	Emotions emotion.Provider
	LLM      llm.Provider

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *VideoWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Clips == nil || p.STT == nil || p.LLM == nil {
		return errors.New("VideoWorkerPool missing dependency: Redis/Clips/STT/LLM must be set")
	}
	if p.Stream == "" {
		p.Stream = "clips:stream"
	}
	if p.Group == "" {
		p.Group = "clip-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *VideoWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *VideoWorkerPool) publishStatus(ctx context.Context, sessionID, status, message string, chunkIndex int64) {
	payload, _ := json.Marshal(map[string]any{
		"type":        "status",
		"status":      status,
		"message":     message,
		"chunk_index": chunkIndex,
	})
	_ = p.Redis.Publish(ctx, "chat:"+sessionID+":status", string(payload)).Err()
}

func (p *VideoWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	sessionID := getStr("session_id")
	chunkIndexStr := getStr("chunk_index")
	if sessionID == "" || chunkIndexStr == "" {
		return
	}
	chunkIndex, _ := strconv.ParseInt(chunkIndexStr, 10, 64)

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"session_id":  sessionID,
		"chunk_index": chunkIndex,
	})

	respCh := "chat:" + sessionID + ":response"
	mimeType := getStr("mime_type")
	if mimeType == "" {
		mimeType = "video/webm"
	}

	video, err := p.fetchVideo(ctx, getStr("video_base64"), getStr("video_url"))
	if err != nil {
		log.WithError(err).Warn("clip fetch failed")
		p.publishStatus(ctx, sessionID, models.StatusFailed, err.Error(), chunkIndex)
		return
	}

	// STT
	_ = p.Clips.MarkSTT(ctx, sessionID, chunkIndex, "", 0, models.StatusProcessing)
	p.publishStatus(ctx, sessionID, models.StatusProcessing, "transcribing", chunkIndex)

	transcript, conf, err := p.STT.Transcribe(ctx, video, getStr("language"))
	if err != nil {
		log.WithError(err).Error("stt failed")
		_ = p.Clips.MarkSTT(ctx, sessionID, chunkIndex, "", 0, models.StatusFailed)
		p.publishStatus(ctx, sessionID, models.StatusFailed, "transcription failed", chunkIndex)
		return
	}
	_ = p.Clips.MarkSTT(ctx, sessionID, chunkIndex, transcript, conf, models.StatusDone)

	sttPayload, _ := json.Marshal(map[string]any{
		"type":        "transcript",
		"chunk_index": chunkIndex,
		"text":        transcript,
		"confidence":  conf,
	})
	_ = p.Redis.Publish(ctx, respCh, string(sttPayload)).Err()

	// Sentiment + emotions
	sentiment := analysis.Classify(transcript)
	var labels []string
	if p.Emotions != nil {
		if labels, err = p.Emotions.Detect(ctx, video, mimeType); err != nil {
			log.WithError(err).Warn("emotion detection failed")
			labels = nil
		}
		// keep only the two strongest perceived emotions
		if len(labels) > 2 {
			labels = labels[:2]
		}
	}
	_ = p.Clips.MarkAnalysis(ctx, sessionID, chunkIndex, sentiment, labels)

	analysisPayload, _ := json.Marshal(map[string]any{
		"type":        "analysis",
		"chunk_index": chunkIndex,
		"sentiment":   sentiment,
		"emotions":    labels,
	})
	_ = p.Redis.Publish(ctx, respCh, string(analysisPayload)).Err()

	// LLM streaming
	start := time.Now()
	_ = p.Clips.MarkLLM(ctx, sessionID, chunkIndex, "", models.StatusProcessing, 0)
	p.publishStatus(ctx, sessionID, models.StatusProcessing, "generating reply", chunkIndex)

	prompt := clipPrompt(transcript, sentiment, labels)
	chunks, errs := p.LLM.StreamAnswer(ctx, prompt)

	var full strings.Builder
	seq := int64(0)
	for chunk := range chunks {
		seq++
		full.WriteString(chunk)

		chPayload, _ := json.Marshal(map[string]any{
			"type":        "reply_chunk",
			"chunk_index": chunkIndex,
			"seq":         seq,
			"chunk":       chunk,
		})
		_ = p.Redis.Publish(ctx, respCh, string(chPayload)).Err()
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}
	if streamErr != nil {
		log.WithError(streamErr).Error("llm stream failed")
		_ = p.Clips.MarkLLM(ctx, sessionID, chunkIndex, "", models.StatusFailed, time.Since(start).Milliseconds())
		p.publishStatus(ctx, sessionID, models.StatusFailed, "reply generation failed", chunkIndex)
		return
	}

	answer := full.String()
	procMS := time.Since(start).Milliseconds()
	_ = p.Clips.MarkLLM(ctx, sessionID, chunkIndex, answer, models.StatusDone, procMS)

	donePayload, _ := json.Marshal(map[string]any{
		"type":               "reply_complete",
		"chunk_index":        chunkIndex,
		"full_response":      answer,
		"processing_time_ms": procMS,
	})
	_ = p.Redis.Publish(ctx, respCh, string(donePayload)).Err()
	p.publishStatus(ctx, sessionID, models.StatusDone, "chunk processed", chunkIndex)
}

func (p *VideoWorkerPool) fetchVideo(ctx context.Context, b64, url string) ([]byte, error) {
	if b64 != "" {
		if i := strings.Index(b64, ","); i >= 0 {
			b64 = b64[i+1:] // strip data:...;base64,
		}
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, errors.New("invalid video_base64")
		}
		return decoded, nil
	}

	if url != "" {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, errors.New("failed to fetch video_url")
		}
		defer resp.Body.Close()

		const maxBytes = 50 << 20
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if len(body) == 0 {
			return nil, errors.New("empty video")
		}
		return body, nil
	}

	return nil, errors.New("no video payload")
}

func clipPrompt(transcript, sentiment string, emotions []string) string {
	var b strings.Builder
	b.WriteString("You are a warm, supportive wellbeing companion. Reply concisely.\n\n")
	b.WriteString("The user said:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nSentiment: ")
	b.WriteString(sentiment)
	if len(emotions) > 0 {
		b.WriteString("\nVisible emotions: ")
		b.WriteString(strings.Join(emotions, ", "))
	}
	return b.String()
}
