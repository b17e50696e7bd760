// Package r2client mirrors uploaded knowledge files to Cloudflare R2 so a
// fresh instance with an empty disk can restore them on boot. R2 speaks the
// S3 API, so the AWS SDK does the transport.
package r2client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned by Get when the key has never been mirrored.
var ErrNotFound = errors.New("r2client: object not found")

// Config identifies the bucket. Endpoint is the account's S3 endpoint,
// https://<account>.r2.cloudflarestorage.com.
type Config struct {
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

func (c Config) validate() error {
	var missing []string
	for _, f := range [...]struct{ name, value string }{
		{"endpoint", c.Endpoint},
		{"access key", c.AccessKeyID},
		{"secret key", c.SecretKey},
		{"bucket", c.BucketName},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("r2client: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Client stores whole objects in one bucket.
type Client struct {
	api    *s3.Client
	bucket string
}

// New builds a client. It does not contact R2.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: aws config: %w", err)
	}
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// R2 does not serve virtual-hosted bucket names.
		o.UsePathStyle = true
	})
	return &Client{api: api, bucket: cfg.BucketName}, nil
}

// Put writes data under key, replacing any previous object.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("r2client: put %s: %w", key, err)
	}
	return nil
}

// Get opens the object stored under key. The caller closes the body.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return out.Body, nil
	case missingObject(err):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("r2client: get %s: %w", key, err)
	}
}

// missingObject recognizes a 404 however the SDK chose to surface it.
func missingObject(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
