package export

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPutter is the part of minio.Client that ObjectStore uses.
type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStore uploads files to an S3-compatible bucket under
// "<dataset>/<file name>". Uploading a file again replaces the object.
type ObjectStore struct {
	client objectPutter
	bucket string
}

func NewObjectStore(client *minio.Client, bucket string) *ObjectStore {
	return &ObjectStore{
		client: client,
		bucket: bucket,
	}
}

// NewMinioClient makes a client for the S3-compatible server at endpoint,
// e.g. "localhost:9000".
func NewMinioClient(endpoint, accessKeyID, secretKey string, secure bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(accessKeyID, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("export: s3: failed to create client: %w", err)
	}

	return client, nil
}

func objectName(dataset, filePath string) string {
	return path.Join(dataset, filepath.Base(filePath))
}

func (s *ObjectStore) StoreFiles(ctx context.Context, dataset string, paths []string) error {
	var errs []error
	for _, p := range paths {
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		name := objectName(dataset, p)
		if _, err := s.client.FPutObject(ctx, s.bucket, name, p, minio.PutObjectOptions{
			ContentType: contentType,
		}); err != nil {
			errs = append(errs, fmt.Errorf("export: s3: put %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
