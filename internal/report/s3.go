package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/and161185/scoutfund/internal/model"
)

// PresignExpiry is how long a returned download URL stays valid.
const PresignExpiry = 15 * time.Minute

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region    string
	AccessKey string // static credentials; empty uses the default chain
	SecretKey string
	Endpoint  string // S3-compatible endpoint, path-style addressing
}

// NewS3Client builds an S3 client from opts.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Exporter uploads snapshots as private objects and hands out presigned GET URLs.
type S3Exporter struct {
	put     objectPutter
	presign objectPresigner
	bucket  string
	prefix  string
}

// NewS3Exporter constructs an S3Exporter over client.
func NewS3Exporter(client *s3.Client, bucket, prefix string) *S3Exporter {
	return &S3Exporter{put: client, presign: s3.NewPresignClient(client), bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (e *S3Exporter) Export(ctx context.Context, snap model.ProfileSnapshot) (string, error) {
	body, err := Encode(snap)
	if err != nil {
		return "", err
	}
	key := objectKey(e.prefix, snap)
	_, err = e.put.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign snapshot: %w", err)
	}
	return req.URL, nil
}
