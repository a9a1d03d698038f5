package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ErrNotS3 is returned for destinations that are not s3:// URLs.
var ErrNotS3 = errors.New("destination is not an s3:// url")

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(dest string) (bucket, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", ErrNotS3, dest)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 destination needs bucket and key: %q", dest)
	}
	return u.Host, key, nil
}

// S3Publisher uploads finished bundles with the multipart upload manager.
type S3Publisher struct {
	uploader *manager.Uploader
}

// NewS3Publisher loads the default AWS config chain.
func NewS3Publisher(ctx context.Context) (*S3Publisher, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Publisher{uploader: manager.NewUploader(s3.NewFromConfig(cfg))}, nil
}

// Publish implements bundle.Publisher for s3:// destinations.
func (p *S3Publisher) Publish(ctx context.Context, localPath, dest string) error {
	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	out, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Str("location", out.Location).Msg("uploaded bundle to S3")
	return nil
}
