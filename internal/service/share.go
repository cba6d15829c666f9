package service

import (
	"context"
	"fmt"

	"norel-backend/internal/models"
	"norel-backend/internal/repository"
	"norel-backend/internal/share"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	ChannelQR  = "qr"
	ChannelNFC = "nfc"

	DefaultQRSize = 320
	MaxQRSize     = 1024
)

// ShareService issues share tokens for owned profiles and decodes scanned
// tokens at the kiosk.
type ShareService struct {
	profiles  *ProfileService
	history   repository.ShareStore
	codec     *share.Codec
	nonces    repository.NonceStore
	singleUse bool
	logger    *zap.Logger
}

// NewShareService creates a share service. nonces may be nil when
// singleUse is false.
func NewShareService(
	profiles *ProfileService,
	history repository.ShareStore,
	codec *share.Codec,
	nonces repository.NonceStore,
	singleUse bool,
	logger *zap.Logger,
) *ShareService {
	return &ShareService{
		profiles:  profiles,
		history:   history,
		codec:     codec,
		nonces:    nonces,
		singleUse: singleUse && nonces != nil,
		logger:    logger,
	}
}

// Share encodes an owned profile and records the issuance
func (s *ShareService) Share(ctx context.Context, userID, profileID uuid.UUID, channel string) (*share.Token, error) {
	if channel != ChannelQR && channel != ChannelNFC {
		return nil, fmt.Errorf("unknown share channel %q", channel)
	}

	profile, err := s.profiles.Get(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}

	token, err := s.codec.Encode(profile)
	if err != nil {
		return nil, err
	}

	record := &models.ShareRecord{
		ID:        uuid.New(),
		ProfileID: profile.ID,
		Channel:   channel,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}
	// The token is valid without a history entry
	if err := s.history.CreateShareRecord(ctx, record); err != nil {
		s.logger.Warn("Failed to record share", zap.String("profile_id", profileID.String()), zap.Error(err))
	}

	s.logger.Info("Profile shared",
		zap.String("profile_id", profileID.String()),
		zap.String("channel", channel),
		zap.Int("url_bytes", len(token.URL)))
	return token, nil
}

// QRCode issues a token and renders its share URL as a PNG
func (s *ShareService) QRCode(ctx context.Context, userID, profileID uuid.UUID, size int) ([]byte, *share.Token, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	if size > MaxQRSize {
		size = MaxQRSize
	}

	token, err := s.Share(ctx, userID, profileID, ChannelQR)
	if err != nil {
		return nil, nil, err
	}

	png, err := qrcode.Encode(token.URL, qrcode.Medium, size)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, token, nil
}

// History lists the share records of an owned profile, newest first
func (s *ShareService) History(ctx context.Context, userID, profileID uuid.UUID) ([]*models.ShareRecord, error) {
	if _, err := s.profiles.Get(ctx, userID, profileID); err != nil {
		return nil, err
	}
	return s.history.GetShareRecordsByProfile(ctx, profileID)
}

// Scan decodes a token presented at a kiosk. In single-use mode the token's
// nonce is redeemed and a second scan fails with repository.ErrConsumed.
func (s *ShareService) Scan(ctx context.Context, token string) (*share.Envelope, error) {
	env, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	if s.singleUse {
		if env.Nonce == "" {
			return nil, fmt.Errorf("%w: nonce is required", share.ErrSchemaViolation)
		}
		if err := s.nonces.Consume(ctx, env.Nonce, s.codec.Remaining(env)); err != nil {
			return nil, err
		}
	}
	return env, nil
}
