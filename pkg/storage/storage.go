// Package storage uploads property images to S3. Uploads are re-encoded to
// webp before they leave the process so the bucket only ever holds one format.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chai2010/webp"
	"github.com/google/uuid"

	"github.com/hometrove/marketplace-api/pkg/config"
)

const (
	MaxFileSize = 10 * 1024 * 1024 // 10MB before re-encoding
	webpQuality = 82
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type Client struct {
	s3     *s3.Client
	bucket string
	region string
}

func New(ctx context.Context, cfg config.StorageConfig) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// UploadPropertyImage validates, re-encodes and stores one listing image.
// Keys are namespaced by owner id; the scope string is either the property id
// or the draft's temporary id for images uploaded before the row exists.
func (c *Client) UploadPropertyImage(ctx context.Context, file *multipart.FileHeader, userID uint, scope string) (string, error) {
	if file.Size > MaxFileSize {
		return "", fmt.Errorf("file size too large, maximum is %d bytes", MaxFileSize)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedTypes[contentType] {
		return "", fmt.Errorf("invalid file type %q, allowed: jpeg, png, webp", contentType)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("could not decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return "", fmt.Errorf("could not encode image: %w", err)
	}

	key := fmt.Sprintf("%d/%s/%d_%s.webp",
		userID,
		scope,
		time.Now().Unix(),
		strings.TrimSuffix(path.Base(file.Filename), path.Ext(file.Filename)),
	)

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/webp"),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %w", err)
	}

	return c.PublicURL(key), nil
}

// UploadAvatar stores a profile image under a random key.
func (c *Client) UploadAvatar(ctx context.Context, file *multipart.FileHeader, userID uint) (string, error) {
	return c.UploadPropertyImage(ctx, file, userID, "avatar-"+uuid.NewString()[:8])
}

func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// Delete removes an object given its public URL.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	parts := strings.SplitN(imageURL, ".amazonaws.com/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("unrecognized storage URL: %s", imageURL)
	}

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(parts[1]),
	})

	return err
}

// Owns reports whether the URL points into this client's bucket. Used to
// refuse image records referencing arbitrary external hosts.
func (c *Client) Owns(imageURL string) bool {
	return strings.HasPrefix(imageURL, fmt.Sprintf("https://%s.s3.", c.bucket))
}
