// Package objectstore provides three typed sub-stores (image, source
// document, projection) sharing one S3-compatible bucket, with
// content-addressed keys and fail-fast semantics.
package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"kgraph-core/internal/apperrors"
)

// s3API is the narrow subset of *s3.Client the store depends on, so tests
// can fake it without a live bucket.
type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Store is the object-storage client.
type Store struct {
	client s3API
	bucket string
	logger *zap.Logger
}

func New(client *s3.Client, bucket string, logger *zap.Logger) *Store {
	return &Store{client: client, bucket: bucket, logger: logger}
}

// EnsureBucketExists is idempotent: a HeadBucket success is a no-op,
// a not-found triggers CreateBucket.
func (s *Store) EnsureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		s.logger.Error("head bucket failed", zap.String("bucket", s.bucket), zap.Error(err))
		return apperrors.Wrap(err, "head bucket")
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return apperrors.Wrap(err, "create bucket")
	}
	return nil
}

// put is the shared fail-fast write path every sub-store method funnels
// through.
func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("put object failed", zap.String("key", key), zap.Error(err))
		return apperrors.Wrap(err, "put object")
	}
	return nil
}

// Get fetches a blob by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apperrors.Wrap(err, "get object")
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "read object body")
	}
	return data, nil
}

// exists reports whether key is already present, used to make
// content-addressed writes idempotent no-ops.
func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, apperrors.Wrap(err, "head object")
}

// DeleteByPrefix paginates through every key under prefix and deletes
// it. Deletion is batched in groups of 1000, the S3
// DeleteObjects limit.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (deleted int, err error) {
	var continuationToken *string
	for {
		listOut, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return deleted, apperrors.Wrap(err, "list objects by prefix")
		}
		if len(listOut.Contents) == 0 {
			break
		}
		objs := make([]types.ObjectIdentifier, 0, len(listOut.Contents))
		for _, obj := range listOut.Contents {
			objs = append(objs, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objs},
		})
		if err != nil {
			return deleted, apperrors.Wrap(err, "delete objects")
		}
		deleted += len(objs)
		if listOut.IsTruncated == nil || !*listOut.IsTruncated {
			break
		}
		continuationToken = listOut.NextContinuationToken
	}
	return deleted, nil
}

// contentHash is the SHA-256 hex digest used for content-addressed keys.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
