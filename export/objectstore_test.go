package export

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/minio/minio-go/v7"
)

// fakeBucket records the last upload per object name.
type fakeBucket struct {
	objects map[string]string
	types   map[string]string
	fail    map[string]bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		objects: make(map[string]string),
		types:   make(map[string]string),
		fail:    make(map[string]bool),
	}
}

func (b *fakeBucket) FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if b.fail[object] {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	b.objects[bucket+"/"+object] = filePath
	b.types[bucket+"/"+object] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object}, nil
}

func TestObjectStoreStoreFiles(t *testing.T) {
	bucket := newFakeBucket()
	s := &ObjectStore{client: bucket, bucket: "charts"}

	paths := []string{"/tmp/out/aqi_time_series.png", "/tmp/out/distributions_plot.png"}
	for i := 0; i < 2; i++ {
		if err := s.StoreFiles(context.Background(), "Oxygen_AQI_Dataset", paths); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	want := map[string]string{
		"charts/Oxygen_AQI_Dataset/aqi_time_series.png":    "/tmp/out/aqi_time_series.png",
		"charts/Oxygen_AQI_Dataset/distributions_plot.png": "/tmp/out/distributions_plot.png",
	}
	if diff := cmp.Diff(bucket.objects, want); diff != "" {
		t.Errorf("Unexpected objects (-got +want):\n%s", diff)
	}
	if got := bucket.types["charts/Oxygen_AQI_Dataset/aqi_time_series.png"]; got != "image/png" {
		t.Errorf("got content type %q, want image/png", got)
	}
}

func TestObjectStoreStoreFilesPartialFailure(t *testing.T) {
	bucket := newFakeBucket()
	bucket.fail["ds/aqi_time_series.png"] = true
	s := &ObjectStore{client: bucket, bucket: "charts"}

	err := s.StoreFiles(context.Background(), "ds", []string{"aqi_time_series.png", "time_series_plot.png"})
	if err == nil {
		t.Fatal("Expected error, but error is nil")
	}
	if _, ok := bucket.objects["charts/ds/time_series_plot.png"]; !ok {
		t.Error("upload after a failed upload was skipped")
	}
}
