package crud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/pkg/errors"

	"github.com/crashstats/crashstorage/crashid"
)

var _ Store = &S3Store{}

// S3API is the part of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the client built by NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set, the default AWS credential chain otherwise. The SDK's own retries
// are disabled; BackingStore and the retry policy own that.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS configuration")
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store keeps artifacts as objects in one bucket.
//
//	v2/raw_crash/ENTROPY/YYYYMMDD/CRASH_ID
//	v1/dump_names/CRASH_ID
//	v1/DUMP_NAME/CRASH_ID
//	v1/processed_crash/CRASH_ID
//	v1/crash_report/YYYYMMDD/CRASH_ID
//
// ENTROPY is the first three characters of the crash ID; the date comes from
// the crash ID. Crash IDs without a date use v1/NAME/CRASH_ID for everything.
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store creates a storage engine that writes to bucket through client.
func NewS3Store(client S3API, bucket string) *BackingStore {
	return NewBackingStore(&S3Store{client: client, bucket: bucket})
}

// Key returns the object key used for an artifact.
func (s *S3Store) Key(crashID string, name string) string {
	date, err := crashid.Date(crashID)
	if err != nil {
		return fmt.Sprintf("v1/%s/%s", name, crashID)
	}

	switch name {
	case "raw_crash":
		return fmt.Sprintf("v2/raw_crash/%s/%s/%s", crashID[:3], date.Format("20060102"), crashID)
	case "crash_report":
		return fmt.Sprintf("v1/crash_report/%s/%s", date.Format("20060102"), crashID)
	default:
		return fmt.Sprintf("v1/%s/%s", name, crashID)
	}
}

func (s *S3Store) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(crashID, name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *S3Store) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	key := s.Key(crashID, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, errors.Wrapf(ErrRecordDoesNotExist, "s3://%s/%s: %s", s.bucket, key, err)
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// IsRetriable treats throttling, timeouts and server side failures as transient.
func (s *S3Store) IsRetriable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "Throttling", "ThrottlingException", "RequestTimeout",
			"RequestTimeTooSkewed", "InternalError", "ServiceUnavailable":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() >= http.StatusInternalServerError ||
			respErr.HTTPStatusCode() == http.StatusTooManyRequests
	}
	return false
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
