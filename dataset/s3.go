package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/helpers"
	"github.com/spektr-org/grantlens/schema"
)

// S3Config holds explicit construction parameters. Empty credentials fall
// back to the default AWS credentials chain.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // optional; S3-compatible endpoint (e.g. MinIO)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
	HTTPClient      *http.Client // optional; tests inject a fake transport
}

// S3Source reads each table from s3://<bucket>/<prefix>/<table.File>.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source builds an S3 client from cfg.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3Source{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Source) key(table schema.Table) string {
	if s.prefix == "" {
		return table.File
	}
	return path.Join(s.prefix, table.File)
}

func (s *S3Source) Read(ctx context.Context, table schema.Table) (*engine.SliceView, error) {
	key := s.key(table)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrMissingTable, s.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	view, err := helpers.ParseCSV(out.Body, table)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return view, nil
}

func (s *S3Source) Describe() string { return "s3://" + path.Join(s.bucket, s.prefix) }

func (s *S3Source) Close() error { return nil }

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
