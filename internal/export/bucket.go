package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
	"go.uber.org/zap"
)

// Uploader pushes extract files to an S3-compatible bucket so runs leave a
// durable copy beside the local output directory.
type Uploader struct {
	client *minio.Client
	bucket string
}

func NewUploader(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		logger.Info("created bucket", zap.String("bucket", bucket))
	}

	return &Uploader{client: client, bucket: bucket}, nil
}

// UploadSnapshots stores each snapshot as <name>.csv in the bucket.
func (u *Uploader) UploadSnapshots(ctx context.Context, snaps []*Snapshot) error {
	for _, snap := range snaps {
		data, err := EncodeCSV(snap)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", snap.Name, err)
		}
		object := snap.Name + ".csv"
		_, err = u.client.PutObject(ctx, u.bucket, object, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "text/csv"})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", object, err)
		}
		logger.Info("uploaded extract",
			zap.String("bucket", u.bucket),
			zap.String("object", object),
			zap.Int("bytes", len(data)))
	}
	return nil
}
