package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// UploadResult describes one stored object.
type UploadResult struct {
	Bucket    string
	ObjectKey string
	ETag      string
	Size      int64
}

// Uploader stores run output files under <prefix><run>/<file name>.
type Uploader struct {
	client *MinIOClient
	logger logging.Logger
}

// NewUploader uploads through client.
func NewUploader(client *MinIOClient, log logging.Logger) *Uploader {
	return &Uploader{client: client, logger: logging.OrDefault(log)}
}

// ObjectKey returns the key a file is stored under for runID.
func (u *Uploader) ObjectKey(runID, file string) string {
	return u.client.prefix + path.Join(runID, filepath.Base(file))
}

// Upload stores each file in order and stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, runID string, files []string) ([]UploadResult, error) {
	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		res, err := u.uploadFile(ctx, runID, f)
		if err != nil {
			return results, err
		}
		u.logger.Info("uploaded output",
			logging.String(logging.FieldRunID, runID),
			logging.String("bucket", res.Bucket),
			logging.String("key", res.ObjectKey),
			logging.Int64("size", res.Size))
		results = append(results, res)
	}
	return results, nil
}

func (u *Uploader) uploadFile(ctx context.Context, runID, file string) (UploadResult, error) {
	fh, err := os.Open(file)
	if err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open output").WithDetail(file)
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat output").WithDetail(file)
	}

	key := u.ObjectKey(runID, file)
	info, err := u.client.client.PutObject(ctx, u.client.bucket, key, fh, st.Size(), minio.PutObjectOptions{
		ContentType:  contentType(file),
		UserMetadata: map[string]string{"run-id": runID},
	})
	if err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	return UploadResult{Bucket: info.Bucket, ObjectKey: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}
