// Package s3 lists and reads staged source objects from Amazon S3.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

// ErrObjectNotFound is returned when the bucket or key does not exist.
var ErrObjectNotFound = errors.New("s3 object not found")

type Client struct {
	api s3iface.S3API
}

// NewClient opens a session in the configured region. Static keys are used
// when present, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg config.AWSConfig, logg *logger.Logger) (*Client, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "region", cfg.Region), "s3 client initialized")
	}
	return NewFromAPI(s3.New(sess)), nil
}

// NewFromAPI wraps an existing S3 API implementation.
func NewFromAPI(api s3iface.S3API) *Client {
	return &Client{api: api}
}

// List returns every key under prefix in lexical order.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	err := c.api.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("listing s3://%s/%s", bucket, prefix))
	}
	return keys, nil
}

// Open streams an object's content. The caller closes the reader.
func (c *Client) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("fetching s3://%s/%s", bucket, key))
	}
	return out.Body, nil
}

func notFound(err error, msg string) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
			return fmt.Errorf("%s: %w", msg, ErrObjectNotFound)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
