// internal/services/media_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learnhub/learnhub-backend/internal/config"
)

type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

var (
	ErrAssetNotFound         = errors.New("asset not found")
	ErrAssetStoreUnavailable = errors.New("asset store unavailable")
)

// AssetRef is the transient handle for one hosted asset: the identifier
// derived from its URL plus the resource kind the host needs for deletion.
type AssetRef struct {
	ID   string
	Kind AssetKind
}

// AssetStore is the capability the lifecycle flows depend on. Callers treat
// deletion failures as best-effort (logged, never propagated).
type AssetStore interface {
	DeleteAsset(ctx context.Context, ref AssetRef) error
}

// MediaService talks to the media host (S3 behind a CDN). Objects are keyed
// by the asset identifier; the public URL places the key after the /upload/
// marker so identifiers survive the URL round trip.
type MediaService struct {
	s3Client *s3.S3
	config   *config.Config
}

type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

func NewMediaService(cfg *config.Config) (*MediaService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &MediaService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &MediaService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

func (s *MediaService) DeleteAsset(ctx context.Context, ref AssetRef) error {
	if s.s3Client == nil {
		// Local development - just log
		logrus.WithFields(logrus.Fields{
			"asset_id": ref.ID,
			"kind":     ref.Kind,
		}).Info("Asset would be deleted")
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(ref.ID),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, ref.ID)
		}
		return fmt.Errorf("%w: delete %s (%s): %v", ErrAssetStoreUnavailable, ref.ID, ref.Kind, err)
	}

	return nil
}

// PresignUpload issues a short-lived PUT URL so admin clients upload media
// directly to the host before submitting the entity that references it.
func (s *MediaService) PresignUpload(kind AssetKind, folder, contentType string) (*PresignedUpload, error) {
	if s.s3Client == nil {
		return nil, fmt.Errorf("%w: media host not configured", ErrAssetStoreUnavailable)
	}

	key := s.generateKey(kind, folder)
	expiration := 15 * time.Minute

	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.config.AWS.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})

	uploadURL, err := req.Presign(expiration)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		UploadURL: uploadURL,
		PublicURL: s.PublicURL(key),
		Key:       key,
		ExpiresIn: int64(expiration.Seconds()),
	}, nil
}

// PublicURL renders the CDN-facing URL for an object key. The /upload/
// segment is the marker ExtractAssetID keys off.
func (s *MediaService) PublicURL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/upload/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/upload/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func (s *MediaService) generateKey(kind AssetKind, folder string) string {
	id := uuid.New()
	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102"), id.String()[:8])

	if folder != "" {
		return fmt.Sprintf("%ss/%s/%s", kind, folder, name)
	}
	return fmt.Sprintf("%ss/%s", kind, name)
}
