package services

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/emotion"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	"github.com/theravid/theravid/internal/utils"
)

type fakeUploadRepo struct {
	rows []models.Upload
}

func (r *fakeUploadRepo) Insert(_ context.Context, u *models.Upload) error {
	r.rows = append(r.rows, *u)
	return nil
}

func (r *fakeUploadRepo) GetByID(_ context.Context, id string) (*models.Upload, error) {
	for i := range r.rows {
		if r.rows[i].ID == id {
			return &r.rows[i], nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeUploadRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.Upload, error) {
	var out []models.Upload
	for _, u := range r.rows {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUploadRepo) ListRecent(_ context.Context, _ int) ([]models.Upload, error) {
	return r.rows, nil
}

type fakeUploader struct {
	objects map[string][]byte
}

func newFakeUploader() *fakeUploader { return &fakeUploader{objects: map[string][]byte{}} }

func (u *fakeUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}
	u.objects[objectName] = buf.Bytes()
	return "uploads/" + objectName, nil
}

func TestAnalyzeProducesEmotionsAndResponse(t *testing.T) {
	uploader := newFakeUploader()
	emo := emotion.NewMock()
	emo.Labels = []string{"happy", "calm"}

	svc := NewCheckinService(&fakeUploadRepo{}, uploader, stt.NewMock(), emo, llm.NewMock(), quietLog())

	res, err := svc.Analyze(context.Background(), "", "checkin.webm", "video/webm", []byte("clip-bytes"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Emotions) != 2 || res.Emotions[0] != "happy" {
		t.Fatalf("unexpected emotions: %v", res.Emotions)
	}
	if res.Response == "" {
		t.Fatal("expected a generated response")
	}
	if len(uploader.objects) != 1 {
		t.Fatalf("clip should be stored once, got %d objects", len(uploader.objects))
	}
}

func TestAnalyzeCapsEmotionsAtTwo(t *testing.T) {
	emo := emotion.NewMock()
	emo.Labels = []string{"anxious", "sad", "tired", "hopeful"}

	svc := NewCheckinService(&fakeUploadRepo{}, newFakeUploader(), stt.NewMock(), emo, llm.NewMock(), quietLog())

	res, err := svc.Analyze(context.Background(), "", "checkin.webm", "video/webm", []byte("clip-bytes"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Emotions) != 2 {
		t.Fatalf("emotions should be capped at two, got %v", res.Emotions)
	}
	if res.Emotions[0] != "anxious" || res.Emotions[1] != "sad" {
		t.Fatalf("cap should keep the strongest labels in order: %v", res.Emotions)
	}
}

func TestAnalyzePersistsForSignedInUser(t *testing.T) {
	repo := &fakeUploadRepo{}
	svc := NewCheckinService(repo, newFakeUploader(), stt.NewMock(), emotion.NewMock(), llm.NewMock(), quietLog())

	if _, err := svc.Analyze(context.Background(), "u-9", "c.webm", "video/webm", []byte("x")); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one persisted upload, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.UserID != "u-9" || row.Transcript == "" || row.Sentiment == "" {
		t.Fatalf("upload row missing analysis fields: %+v", row)
	}
}

func TestAnalyzeAnonymousSkipsPersistence(t *testing.T) {
	repo := &fakeUploadRepo{}
	svc := NewCheckinService(repo, newFakeUploader(), stt.NewMock(), emotion.NewMock(), llm.NewMock(), quietLog())

	if _, err := svc.Analyze(context.Background(), "", "c.webm", "video/webm", []byte("x")); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("anonymous check-in should not persist a row, got %d", len(repo.rows))
	}
}

func TestAnalyzeEmptyRecording(t *testing.T) {
	svc := NewCheckinService(&fakeUploadRepo{}, newFakeUploader(), stt.NewMock(), emotion.NewMock(), llm.NewMock(), quietLog())

	_, err := svc.Analyze(context.Background(), "", "c.webm", "video/webm", nil)
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty recording should be invalid, got %v", err)
	}
}
