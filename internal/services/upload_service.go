package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/theravid/theravid/internal/models"
	pgrepo "github.com/theravid/theravid/internal/repositories/postgres"
	"github.com/theravid/theravid/internal/storage"
	"github.com/theravid/theravid/internal/utils"
)

type UploadService interface {
	Store(ctx context.Context, userID, fileName string, fileSize int, mimeType string, r io.Reader) (*models.Upload, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Upload, error)
	ListRecent(ctx context.Context, limit int) ([]models.Upload, error)
}

type uploadService struct {
	repo     pgrepo.UploadRepository
	uploader storage.Uploader
}

func NewUploadService(repo pgrepo.UploadRepository, uploader storage.Uploader) UploadService {
	return &uploadService{repo: repo, uploader: uploader}
}

func (s *uploadService) Store(ctx context.Context, userID, fileName string, fileSize int, mimeType string, r io.Reader) (*models.Upload, error) {
	const op = "UploadService.Store"

	if userID == "" || fileName == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and file_name are required", nil)
	}
	if s.uploader == nil {
		return nil, utils.E(utils.CodeInternal, op, "uploader is not configured", nil)
	}

	objectName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fileName)
	storedPath, err := s.uploader.Upload(ctx, objectName, mimeType, r)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload file", err)
	}

	row := &models.Upload{
		ID:       uuid.NewString(),
		UserID:   userID,
		FileName: fileName,
		StoredAs: objectName,
		FilePath: storedPath,
		FileSize: fileSize,
		MimeType: mimeType,
		UploadAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist upload metadata", err)
	}
	return row, nil
}

func (s *uploadService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Upload, error) {
	const op = "UploadService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list uploads", err)
	}
	return rows, nil
}

func (s *uploadService) ListRecent(ctx context.Context, limit int) ([]models.Upload, error) {
	const op = "UploadService.ListRecent"

	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list uploads", err)
	}
	return rows, nil
}
