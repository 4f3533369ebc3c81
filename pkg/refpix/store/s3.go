package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// UploadAPI is the part of manager.Uploader the S3 store uses.
type UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// permanentS3Codes are API error codes that no retry can fix.
var permanentS3Codes = map[string]struct{}{
	"AccessDenied":          {},
	"AllAccessDisabled":     {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"NoSuchBucket":          {},
	"InvalidBucketName":     {},
	"AccountProblem":        {},
	"InvalidObjectState":    {},
}

// S3Store puts objects into an S3 (or S3-compatible) bucket.
type S3Store struct {
	uploader UploadAPI
	bucket   string
}

// NewS3Store loads the default AWS configuration, overriding region and
// static credentials when cfg sets them. A non-empty Endpoint selects an
// S3-compatible service with path-style addressing.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Username, cfg.Password, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithUploader(manager.NewUploader(client), cfg.Bucket), nil
}

// NewS3StoreWithUploader builds a store around an existing uploader.
func NewS3StoreWithUploader(uploader UploadAPI, bucket string) *S3Store {
	return &S3Store{uploader: uploader, bucket: bucket}
}

// Put uploads obj to the bucket.
func (s *S3Store) Put(ctx context.Context, obj Object) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return classifyS3(fmt.Errorf("put s3://%s/%s: %w", s.bucket, obj.Key, err))
	}
	return nil
}

func classifyS3(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentS3Codes[apiErr.ErrorCode()]; ok {
			return Permanent(err)
		}
	}
	return err
}
