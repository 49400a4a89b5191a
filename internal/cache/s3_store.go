package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
	"io"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the extrema cache as a JSON object in S3, in the same format
// as the device file.
type S3Store struct {
	client     S3Client
	bucketName string
	key        string
}

func NewS3Store(client S3Client, bucketName, key string) *S3Store {
	return &S3Store{
		client:     client,
		bucketName: bucketName,
		key:        key,
	}
}

func (s *S3Store) Save(ctx context.Context, set *models.ExtremaSet) error {
	if s.bucketName == "" {
		return fmt.Errorf("empty bucket name")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(NewExtremaRecord(set)); err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("saving to S3: %w", err)
	}

	log.Debug().Int("extremes", set.Count()).Str("key", s.key).Msg("Saved extrema to S3")
	return nil
}

func (s *S3Store) Load(ctx context.Context) (*models.ExtremaSet, error) {
	if s.bucketName == "" {
		return nil, fmt.Errorf("empty bucket name")
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting extrema from S3: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	var record ExtremaRecord
	if err := json.NewDecoder(result.Body).Decode(&record); err != nil {
		return nil, NewCorruptError("decoding JSON", err)
	}
	return record.ToSet()
}
