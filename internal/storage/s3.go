package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"nearby-offers/internal/config"
	"nearby-offers/internal/validation"
)

const s3Scheme = "s3://"

// S3Store keeps documents in an S3 compatible bucket.
type S3Store struct {
	client *s3.Client
}

// NewS3Store builds a client from cfg. Static credentials and a custom
// endpoint are used when set, otherwise the default AWS chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}, nil
}

// ParseLocation splits s3://bucket/key.
func ParseLocation(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// location", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q must name a bucket and a key", location)
	}
	return bucket, key, nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, &validation.InputError{Source: location, Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &validation.InputError{Source: location, Err: errors.New("document does not exist")}
		}
		return nil, &validation.InputError{Source: location, Err: fmt.Errorf("unable to read document: %w", err)}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &validation.InputError{Source: location, Err: fmt.Errorf("unable to read document: %w", err)}
	}
	return data, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, location string, data []byte) error {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return err
	}

	contentType := "application/json"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", location, err)
	}
	return nil
}
