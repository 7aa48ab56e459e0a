// Package scanner checks uploads for malware by dropping them into an S3
// bucket watched by an antivirus function and waiting for its verdict tag.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

var (
	_ core.Scanner = (*S3Scanner)(nil)
	_ core.Scanner = NoopScanner{}
)

// Tag written by the antivirus function once it has scanned an object.
const (
	StatusTag   = "av-status"
	StatusClean = "clean"
)

// ErrScanIncomplete is returned when no verdict arrived within the
// configured number of attempts.
var ErrScanIncomplete = errors.New("virus scan did not complete")

// S3API is the subset of the S3 client used by the scanner.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectTagging(ctx context.Context, in *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Scanner uploads a file, polls its tags for the antivirus verdict and
// deletes it again. It fails closed: anything but a clean verdict is not
// clean.
type S3Scanner struct {
	client       S3API
	bucket       string
	prefix       string
	pollInterval time.Duration
	maxAttempts  int
}

// NewS3Client builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3Client(cfg config.ScannerConfig) *s3.Client {
	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// New creates an S3Scanner. The "local" environment prefix maps to "dev",
// where the development antivirus function listens.
func New(client S3API, cfg config.ScannerConfig) (*S3Scanner, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("scanner bucket is required")
	}
	prefix := cfg.Prefix
	if prefix == "" || prefix == "local" {
		prefix = "dev"
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return &S3Scanner{
		client:       client,
		bucket:       cfg.Bucket,
		prefix:       prefix,
		pollInterval: interval,
		maxAttempts:  attempts,
	}, nil
}

func (s *S3Scanner) key(fileID string) string {
	return fmt.Sprintf("%s/%s.csv", s.prefix, fileID)
}

// Scan reports whether the antivirus function tagged the file clean.
func (s *S3Scanner) Scan(ctx context.Context, fileID string, data []byte) (bool, error) {
	logger := logging.FromContext(ctx).With("scan_key", s.key(fileID))
	key := aws.String(s.key(fileID))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return false, fmt.Errorf("virus scan upload: %w", err)
	}
	defer func() {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := s.client.DeleteObject(delCtx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
			logger.Warn("failed to delete scanned object", "error", err)
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("virus scan: %w", ctx.Err())
		case <-ticker.C:
		}

		status, ok, err := s.status(ctx, key)
		if err != nil {
			logger.Debug("reading scan tags failed", "attempt", attempt, "error", err)
			continue
		}
		if !ok {
			logger.Debug("scan verdict not ready", "attempt", attempt)
			continue
		}

		logger.Info("scan verdict received", "attempt", attempt, "status", status)
		return status == StatusClean, nil
	}

	return false, fmt.Errorf("%w after %d attempts", ErrScanIncomplete, s.maxAttempts)
}

func (s *S3Scanner) status(ctx context.Context, key *string) (string, bool, error) {
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    key,
	})
	if err != nil {
		return "", false, err
	}
	for _, tag := range out.TagSet {
		if aws.ToString(tag.Key) == StatusTag {
			return aws.ToString(tag.Value), true, nil
		}
	}
	return "", false, nil
}

// NoopScanner treats every file as clean. Used when scanning is disabled.
type NoopScanner struct{}

func (NoopScanner) Scan(context.Context, string, []byte) (bool, error) {
	return true, nil
}
