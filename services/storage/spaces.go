// Package storage provides the S3-compatible blob store used to stage
// inline image payloads before they are handed to the tagging provider.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// PresignExpiry bounds how long a staged object stays reachable. The
// tagging provider fetches it once, right away.
const PresignExpiry = 1 * time.Minute

// SpacesClient handles staging objects in an S3-compatible bucket
type SpacesClient struct {
	s3Client *s3.S3
	bucket   string
}

// SpacesConfig holds configuration for the Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
	}, nil
}

// StageBytes uploads transient content and returns a presigned GET URL the
// tagging provider can fetch it from. Objects are keyed by a fresh UUID
// under the staging prefix; a bucket lifecycle rule reaps them.
func (s *SpacesClient) StageBytes(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("staging/%s", uuid.NewString())

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(data)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to stage object: %w", err)
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign staged object: %w", err)
	}
	return url, nil
}

// DeleteObject removes a staged object
func (s *SpacesClient) DeleteObject(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete staged object: %w", err)
	}
	return nil
}
