// Package storage publishes generated payment files to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// XMLContentType is sent with every published artifact.
const XMLContentType = "application/xml"

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, otherwise -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object store.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}

// ObjectKey joins prefix and the base name of file with forward slashes.
func ObjectKey(prefix, file string) string {
	name := filepath.Base(file)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Publish uploads the artifact at file under prefix.
//
// PARAMETERS:
//   - ctx: Bounds the upload.
//   - store: The destination.
//   - prefix: The key prefix; may be empty.
//   - file: The local artifact.
//   - metadata: User metadata stored with the object (run id, version).
//
// RETURNS:
//   - The stored object's info.
//   - An error if the file cannot be read or the upload fails.
func Publish(ctx context.Context, store Storage, prefix, file string, metadata map[string]string) (ObjectInfo, error) {
	f, err := os.Open(file)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat artifact: %w", err)
	}

	key := ObjectKey(prefix, file)
	info, err := store.Put(ctx, key, f, PutObjectOptions{
		Size:        st.Size(),
		ContentType: XMLContentType,
		Metadata:    metadata,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}
