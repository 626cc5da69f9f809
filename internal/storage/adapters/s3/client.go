// Package s3 mirrors backup files to an S3 or S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"netmri-backup/internal/config"
	"netmri-backup/internal/observability/types"
	storagetypes "netmri-backup/internal/storage/types"
)

// api is the part of the S3 SDK client used here.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var _ storagetypes.ObjectStorage = (*Client)(nil)

// Client implements the ObjectStorage interface for AWS S3
type Client struct {
	s3Client api
	config   config.S3Config
	logger   types.Logger
	metrics  types.Metrics
}

// NewClient creates a new S3 storage client and checks that the configured
// bucket is reachable.
func NewClient(ctx context.Context, cfg *config.StorageConfig, logger types.Logger, metrics types.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid S3 configuration: %w", err)
	}

	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	client := newClient(s3Client, cfg.S3, logger, metrics)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.checkBucket(checkCtx); err != nil {
		return nil, err
	}

	return client, nil
}

func newClient(s3Client api, cfg config.S3Config, logger types.Logger, metrics types.Metrics) *Client {
	return &Client{
		s3Client: s3Client,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Put stores an object in S3. Seekable readers such as *os.File are sent
// as they are; anything else is buffered first so the SDK can sign it.
func (c *Client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata storagetypes.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("s3_put", time.Since(start).Seconds())
	}()

	if bucket == "" {
		bucket = c.config.Bucket
	}

	body, size, err := seekableBody(reader, metadata.ContentLength)
	if err != nil {
		c.metrics.RecordError("s3_put", "read")
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		c.metrics.RecordError("s3_put", "api")
		c.logger.Error(ctx, "failed to put object", err, types.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to put object: %w", err)
	}

	c.metrics.RecordSuccess("s3_put")
	if size >= 0 {
		c.metrics.RecordFileSize("mirror", size)
	}
	c.logger.Debug(ctx, "object stored successfully", types.Fields{
		"bucket": bucket,
		"key":    key,
		"size":   size,
	})

	return nil
}

// checkBucket verifies the configured bucket exists. Buckets are never
// created here; a missing bucket is a configuration error.
func (c *Client) checkBucket(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("bucket %s does not exist", c.config.Bucket)
		}
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return nil
}

// seekableBody returns a body the SDK can rewind, with its size when known
// (-1 otherwise).
func seekableBody(reader io.Reader, length int64) (io.Reader, int64, error) {
	if seeker, ok := reader.(io.ReadSeeker); ok {
		if length > 0 {
			return seeker, length, nil
		}
		cur, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, err
		}
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return seeker, end - cur, nil
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, reader); err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(buf.Bytes()), int64(buf.Len()), nil
}

// buildAWSConfig builds the AWS configuration from the storage config
func buildAWSConfig(ctx context.Context, storageConfig *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	s3Config := storageConfig.S3

	if s3Config.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(s3Config.Region))
	}

	if s3Config.AccessKeyID != "" && s3Config.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Config.AccessKeyID,
				s3Config.SecretAccessKey,
				"",
			),
		))
	}

	if storageConfig.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(storageConfig.MaxRetries))
	}

	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
		Timeout: storageConfig.Timeout,
	}))

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// isNotFoundError checks if an error is a not found error
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	var nsb *s3types.NoSuchBucket
	return errors.As(err, &nsk) || errors.As(err, &nse) || errors.As(err, &nsb)
}
