package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/platecheck/internal/domain/results"
)

// MinioStore reads vehicle and plate images from a bucket the recognition
// pipeline uploads to.
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinio buat koneksi MinIO
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// read-only: the bucket has to exist already
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", bucket)
	}

	return &MinioStore{client: cli, bucketName: bucket}, nil
}

// Open implements results.ImageStore. Paths may be bare keys, "/key" or
// "s3://bucket/key".
func (s *MinioStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	key := objectKey(s.bucketName, path)
	if key == "" {
		return nil, "", results.ErrImageNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", results.ErrImageNotFound
		}
		return nil, "", err
	}
	ct := info.ContentType
	if ct == "" {
		ct = contentType(key)
	}
	return obj, ct, nil
}

// Check confirms the bucket is still reachable.
func (s *MinioStore) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}

func objectKey(bucket, path string) string {
	key := strings.TrimPrefix(path, "s3://")
	key = strings.TrimPrefix(key, "/")
	key = strings.TrimPrefix(key, bucket+"/")
	return key
}
