package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
)

// PutObjectAPI is the part of the S3 client the store uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads images to an S3 bucket.
type S3Store struct {
	client   PutObjectAPI
	bucket   string
	prefix   string
	maxBytes int64
}

// NewS3 creates an S3Store using the default AWS credential chain. Region
// and endpoint from settings override the environment.
func NewS3(ctx context.Context, settings *conf.S3ImageSettings, maxBytes int64) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storageError(fmt.Errorf("unable to load AWS config: %w", err), "s3", "init")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		o.UsePathStyle = settings.PathStyle
	})
	return NewS3WithClient(client, settings.Bucket, settings.Prefix, maxBytes), nil
}

// NewS3WithClient creates an S3Store on an existing client.
func NewS3WithClient(client PutObjectAPI, bucket, prefix string, maxBytes int64) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, maxBytes: maxBytes}
}

// Put uploads the image privately under <prefix>/<organ>/<uuid><ext> and
// returns s3://bucket/key.
func (s *S3Store) Put(ctx context.Context, organ knowledge.OrganType, img classifier.Image) (string, error) {
	if err := Validate(img, s.maxBytes); err != nil {
		return "", err
	}

	key := path.Join(s.prefix, organ.String(), uuid.NewString()+extension(img))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(ContentType(img)),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", storageError(fmt.Errorf("failed to upload image to s3://%s/%s: %w", s.bucket, key, err), "s3", "put")
	}

	ref := "s3://" + s.bucket + "/" + key
	GetLogger().Debug("image uploaded",
		logger.String("ref", ref),
		logger.Int("size", len(img.Data)))
	return ref, nil
}
