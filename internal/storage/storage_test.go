package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage/mocks"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "out.xml", storage.ObjectKey("", "/tmp/x/out.xml"))
	assert.Equal(t, "pain001/out.xml", storage.ObjectKey("/pain001/", "/tmp/x/out.xml"))
	assert.Equal(t, "a/b/out.xml", storage.ObjectKey("a/b", "out.xml"))
}

func TestPublish(t *testing.T) {
	file := filepath.Join(t.TempDir(), "payments_pain_001_001_03.xml")
	require.NoError(t, os.WriteFile(file, []byte("<Document/>"), 0644))

	store := new(mocks.MockStorage)
	meta := map[string]string{"run-id": "r1"}
	store.On("Put", mock.Anything, "out/payments_pain_001_001_03.xml", mock.Anything, storage.PutObjectOptions{
		Size: 11, ContentType: storage.XMLContentType, Metadata: meta,
	}).Return(func(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
		body, _ := io.ReadAll(r)
		return storage.ObjectInfo{Key: key, Size: int64(len(body))}
	}, nil)

	info, err := storage.Publish(context.Background(), store, "out", file, meta)
	require.NoError(t, err)

	assert.Equal(t, "out/payments_pain_001_001_03.xml", info.Key)
	assert.Equal(t, int64(11), info.Size)
	store.AssertExpectations(t)
}

func TestPublishPutError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.xml")
	require.NoError(t, os.WriteFile(file, []byte("<a/>"), 0644))

	store := new(mocks.MockStorage)
	store.On("Put", mock.Anything, "out.xml", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("access denied"))

	_, err := storage.Publish(context.Background(), store, "", file, nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestPublishMissingFile(t *testing.T) {
	store := new(mocks.MockStorage)

	_, err := storage.Publish(context.Background(), store, "", filepath.Join(t.TempDir(), "absent.xml"), nil)
	assert.Error(t, err)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewMinIOValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{"no endpoint", config.StorageConfig{Bucket: "b"}, "endpoint"},
		{"no credentials", config.StorageConfig{Endpoint: "localhost:9000", Bucket: "b"}, "credentials"},
		{"no bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := storage.NewMinIO(context.Background(), tt.cfg)
			assert.Nil(t, s)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
