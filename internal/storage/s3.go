// Package storage hands out presigned S3 URLs for identity document images.
// Document bytes never pass through the server.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	UploadURLLifetime   = 15 * time.Minute
	DownloadURLLifetime = 5 * time.Minute

	documentsPrefix = "documents/"
)

// Presigner is the subset of the S3 presign client used here
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest is the part of a presigned HTTP request callers need
type PresignedRequest struct {
	URL    string
	Method string
}

// S3Service creates presigned document URLs inside one bucket
type S3Service struct {
	presigner  Presigner
	bucketName string
}

// NewS3Service wraps an S3 client
func NewS3Service(client *s3.Client, bucketName string) *S3Service {
	return NewS3ServiceWithPresigner(&awsPresigner{client: s3.NewPresignClient(client)}, bucketName)
}

// NewS3ServiceWithPresigner builds a service on any presigner
func NewS3ServiceWithPresigner(p Presigner, bucketName string) *S3Service {
	return &S3Service{presigner: p, bucketName: bucketName}
}

// NewDocumentKey returns a fresh object key under the user's prefix
func NewDocumentKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s/%s", documentsPrefix, userID, uuid.NewString())
}

// OwnsKey reports whether objectKey lives under the user's prefix
func OwnsKey(userID uuid.UUID, objectKey string) bool {
	prefix := documentsPrefix + userID.String() + "/"
	return strings.HasPrefix(objectKey, prefix) && len(objectKey) > len(prefix) && !strings.Contains(objectKey, "..")
}

// PresignPut returns a URL the client uploads a document to
func (s *S3Service) PresignPut(ctx context.Context, objectKey string, lifetime time.Duration) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object key must not be empty")
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(lifetime))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload of %s: %w", objectKey, err)
	}
	return req.URL, nil
}

// PresignGet returns a short-lived URL to read a document
func (s *S3Service) PresignGet(ctx context.Context, objectKey string, lifetime time.Duration) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object key must not be empty")
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(lifetime))
	if err != nil {
		return "", fmt.Errorf("failed to presign download of %s: %w", objectKey, err)
	}
	return req.URL, nil
}

type awsPresigner struct {
	client *s3.PresignClient
}

func (p *awsPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignPutObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL, Method: req.Method}, nil
}

func (p *awsPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL, Method: req.Method}, nil
}
