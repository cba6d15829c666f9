package service

import (
	"context"

	"norel-backend/internal/ai"
	"norel-backend/internal/storage"

	"github.com/google/uuid"
)

// DocumentUpload is a presigned upload slot for one document image
type DocumentUpload struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
}

// DocumentService hands out document URLs and extracts profile fields from
// document text. Either dependency may be nil.
type DocumentService struct {
	s3 *storage.S3Service
	ai *ai.Orchestrator
}

func NewDocumentService(s3 *storage.S3Service, orchestrator *ai.Orchestrator) *DocumentService {
	return &DocumentService{s3: s3, ai: orchestrator}
}

// UploadURL reserves a new object key for userID
func (s *DocumentService) UploadURL(ctx context.Context, userID uuid.UUID) (*DocumentUpload, error) {
	if s.s3 == nil {
		return nil, ErrDisabled
	}
	key := storage.NewDocumentKey(userID)
	url, err := s.s3.PresignPut(ctx, key, storage.UploadURLLifetime)
	if err != nil {
		return nil, err
	}
	return &DocumentUpload{UploadURL: url, FileKey: key}, nil
}

// DownloadURL returns a read URL for a document uploaded by userID
func (s *DocumentService) DownloadURL(ctx context.Context, userID uuid.UUID, fileKey string) (string, error) {
	if s.s3 == nil {
		return "", ErrDisabled
	}
	if !storage.OwnsKey(userID, fileKey) {
		return "", ErrForbidden
	}
	return s.s3.PresignGet(ctx, fileKey, storage.DownloadURLLifetime)
}

// Extract reads profile attributes out of OCR text
func (s *DocumentService) Extract(ctx context.Context, text string) (map[string]string, error) {
	if s.ai == nil {
		return nil, ErrDisabled
	}
	return s.ai.ExtractProfile(ctx, text)
}
