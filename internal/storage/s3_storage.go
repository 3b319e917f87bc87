package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/changheecho2/banju/internal/config"
)

// PresignExpiry is how long a portfolio upload URL stays valid.
const PresignExpiry = 15 * time.Minute

var (
	ErrUnsupportedContentType = errors.New("unsupported portfolio content type")
	ErrStorageNotConfigured   = errors.New("portfolio storage is not configured")
)

// Portfolio samples accepted for upload.
var allowedContentTypes = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/mp4":       ".m4a",
	"audio/wav":       ".wav",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// PortfolioUpload describes a presigned upload slot.
type PortfolioUpload struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	PublicURL string    `json:"publicUrl,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	PresignPortfolioUpload(ctx context.Context, uid, filename, contentType string) (*PortfolioUpload, error)
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(ctx,
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &s3Storage{
		cfg:           cfg,
		presignClient: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
	}, nil
}

// PresignPortfolioUpload returns a PUT URL under portfolio/<uid>/.
func (s *s3Storage) PresignPortfolioUpload(ctx context.Context, uid, filename, contentType string) (*PortfolioUpload, error) {
	if s.cfg.AwsS3Bucket == "" {
		return nil, ErrStorageNotConfigured
	}
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	objectKey := PortfolioKey(uid, filename, ext)
	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	upload := &PortfolioUpload{
		UploadURL: presignedReq.URL,
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(PresignExpiry),
	}
	if s.cfg.PortfolioBaseURL != "" {
		upload.PublicURL = strings.TrimRight(s.cfg.PortfolioBaseURL, "/") + "/" + objectKey
	}
	log.Printf("DEBUG: presigned portfolio upload for %s: %s", uid, objectKey)
	return upload, nil
}

// PortfolioKey builds a collision-free object key. Only the base name of
// filename is kept, reduced to safe characters.
func PortfolioKey(uid, filename, ext string) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(filename, "\\", "/")), path.Ext(filename))
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
		if sb.Len() >= 40 {
			break
		}
	}
	name := uuid.NewString()
	if sb.Len() > 0 {
		name += "_" + sb.String()
	}
	return fmt.Sprintf("portfolio/%s/%s%s", uid, name, ext)
}
