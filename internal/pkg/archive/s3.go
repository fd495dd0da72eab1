// Package archive stores raw webhook deliveries in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

// ObjectPutter is the subset of *s3.Client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client ObjectPutter
	bucket string
	now    func() time.Time
}

// New builds an archiver from configuration. It returns nil, nil when archiving is disabled.
func New(ctx context.Context, cfg config.Archive) (*S3Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required when S3 archive is enabled")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Infof("[Archive] Archiving webhook payloads to bucket %s", cfg.BucketName)
	return NewS3Archiver(client, cfg.BucketName), nil
}

func NewS3Archiver(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, now: time.Now}
}

// ObjectKey returns webhooks/YYYY/MM/DD/<deliveryId>.json.
func ObjectKey(deliveryID string, at time.Time) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(deliveryID)
	at = at.UTC()
	return fmt.Sprintf("webhooks/%04d/%02d/%02d/%s.json", at.Year(), int(at.Month()), at.Day(), safe)
}

func (a *S3Archiver) Archive(ctx context.Context, deliveryID string, payload []byte) error {
	key := ObjectKey(deliveryID, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debugf("[Archive] Stored delivery %s as %s", deliveryID, key)
	return nil
}
