package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/theravid/theravid/internal/analysis"
	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/emotion"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	pgrepo "github.com/theravid/theravid/internal/repositories/postgres"
	"github.com/theravid/theravid/internal/storage"
	"github.com/theravid/theravid/internal/utils"
)

// maxEmotionLabels caps how many perceived emotions a check-in reports.
const maxEmotionLabels = 2

// AnalysisResult is the /record response body.
type AnalysisResult struct {
	Emotions []string `json:"emotions"`
	Response string   `json:"response"`
}

type CheckinService interface {
	Analyze(ctx context.Context, userID, fileName, mimeType string, data []byte) (*AnalysisResult, error)
}

type checkinService struct {
	uploads  pgrepo.UploadRepository
	uploader storage.Uploader
	stt      stt.Provider
	emotions emotion.Provider
	llm      llm.Provider
	log      *logrus.Logger
}

func NewCheckinService(
	uploads pgrepo.UploadRepository,
	uploader storage.Uploader,
	sttP stt.Provider,
	emoP emotion.Provider,
	llmP llm.Provider,
	log *logrus.Logger,
) CheckinService {
	return &checkinService{
		uploads:  uploads,
		uploader: uploader,
		stt:      sttP,
		emotions: emoP,
		llm:      llmP,
		log:      log,
	}
}

// Analyze stores the clip, runs transcription and emotion detection in
// parallel, scores the transcript, and asks the LLM for a supportive reply.
func (s *checkinService) Analyze(ctx context.Context, userID, fileName, mimeType string, data []byte) (*AnalysisResult, error) {
	const op = "CheckinService.Analyze"

	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty recording", nil)
	}
	if fileName == "" {
		fileName = "checkin.webm"
	}

	objectName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fileName)
	storedPath, err := s.uploader.Upload(ctx, objectName, mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store recording", err)
	}

	var (
		wg         sync.WaitGroup
		transcript string
		confidence float64
		sttErr     error
		labels     []string
		emoErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		transcript, confidence, sttErr = s.stt.Transcribe(ctx, data, "")
	}()
	go func() {
		defer wg.Done()
		labels, emoErr = s.emotions.Detect(ctx, data, mimeType)
	}()
	wg.Wait()

	if sttErr != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", sttErr)
	}
	if emoErr != nil {
		// transcript alone still supports a reply
		s.log.WithError(emoErr).Warn("emotion detection failed, continuing without labels")
		labels = nil
	}
	// only the two strongest perceived emotions are surfaced
	if len(labels) > maxEmotionLabels {
		labels = labels[:maxEmotionLabels]
	}

	sentiment := analysis.Classify(transcript)

	reply, err := llm.Answer(ctx, s.llm, checkinPrompt(transcript, sentiment, labels))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to generate response", err)
	}

	if userID != "" {
		row := &models.Upload{
			ID:         uuid.NewString(),
			UserID:     userID,
			FileName:   fileName,
			StoredAs:   objectName,
			FilePath:   storedPath,
			FileSize:   len(data),
			MimeType:   mimeType,
			Transcript: transcript,
			Sentiment:  sentiment,
			Emotions:   labels,
			UploadAt:   time.Now().UTC(),
		}
		if err := s.uploads.Insert(ctx, row); err != nil {
			s.log.WithError(err).Warn("failed to persist check-in upload")
		}
	}

	s.log.WithFields(logrus.Fields{
		"stored_as":  objectName,
		"confidence": confidence,
		"sentiment":  sentiment,
		"emotions":   labels,
	}).Info("check-in analyzed")

	return &AnalysisResult{Emotions: labels, Response: reply}, nil
}

func checkinPrompt(transcript, sentiment string, emotions []string) string {
	var b strings.Builder
	b.WriteString("You are a warm, supportive wellbeing companion. ")
	b.WriteString("The user just recorded a video check-in.\n")
	fmt.Fprintf(&b, "Transcript: %q\n", transcript)
	fmt.Fprintf(&b, "Overall sentiment: %s\n", sentiment)
	if len(emotions) > 0 {
		fmt.Fprintf(&b, "Visible emotions: %s\n", strings.Join(emotions, ", "))
	}
	b.WriteString("Reply in two or three sentences, acknowledging how they seem to feel and asking one gentle follow-up question.")
	return b.String()
}
