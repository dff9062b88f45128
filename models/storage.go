package models

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	e "github.com/happyplace/dashboard/errors"
)

// ObjectStore holds photos and generated marketing material
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
	BucketExists(ctx context.Context) (bool, error)
}

var storage ObjectStore

// errObjectNotFound is returned by Get for unknown keys
var errObjectNotFound = fmt.Errorf("object not found")

// InitStorage connects to the S3 compatible object store
func InitStorage(
	endpoint string,
	accessKey string,
	secretKey string,
	bucket string,
	useSSL bool,
) error {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return err
	}

	storage = &minioStore{client: client, bucket: bucket}
	return nil
}

// SetStorage replaces the object store, used by tests and by deployments
// without an object store
func SetStorage(s ObjectStore) {
	storage = s
}

// GetStorage returns the object store, or an error if none is configured
func GetStorage() (ObjectStore, error) {
	if storage == nil {
		return nil, e.New(0, "GetStorage", e.StorageUnavailable, "Object storage is not configured")
	}
	return storage, nil
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func (s *minioStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(content),
		int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	return err
}

func (s *minioStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", errObjectNotFound
		}
		return nil, "", err
	}

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}

	return content, info.ContentType, nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *minioStore) BucketExists(ctx context.Context) (bool, error) {
	return s.client.BucketExists(ctx, s.bucket)
}

type memoryObject struct {
	content     []byte
	contentType string
}

// MemoryStore is an ObjectStore held in process
type MemoryStore struct {
	sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore returns an empty in-process object store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}}
}

// Put implements ObjectStore
func (s *MemoryStore) Put(_ context.Context, key string, content []byte, contentType string) error {
	s.Lock()
	defer s.Unlock()

	b := make([]byte, len(content))
	copy(b, content)
	s.objects[key] = memoryObject{content: b, contentType: contentType}
	return nil
}

// Get implements ObjectStore
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.RLock()
	defer s.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, "", errObjectNotFound
	}
	return o.content, o.contentType, nil
}

// Remove implements ObjectStore
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()

	delete(s.objects, key)
	return nil
}

// BucketExists implements ObjectStore
func (s *MemoryStore) BucketExists(context.Context) (bool, error) {
	return true, nil
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.objects)
}

// ObjectURL returns the API URL that serves a stored object
func ObjectURL(key string) string {
	return "/api/v1/files/" + strings.TrimPrefix(key, "/")
}

// StoreObject saves content to the object store
func StoreObject(ctx context.Context, key string, content []byte, contentType string) (int, error) {
	s, err := GetStorage()
	if err != nil {
		return http.StatusServiceUnavailable, err
	}

	err = s.Put(ctx, key, content, contentType)
	if err != nil {
		glog.Errorf("storage.Put(%s) %+v", key, err)
		return http.StatusInternalServerError,
			e.New(0, "StoreObject", e.StorageUnavailable, "Could not store the file")
	}

	return http.StatusOK, nil
}

// FetchObject returns stored content and its content type
func FetchObject(ctx context.Context, key string) ([]byte, string, int, error) {
	s, err := GetStorage()
	if err != nil {
		return nil, "", http.StatusServiceUnavailable, err
	}

	content, contentType, err := s.Get(ctx, key)
	if err == errObjectNotFound {
		return nil, "", http.StatusNotFound, fmt.Errorf("File not found")
	} else if err != nil {
		glog.Errorf("storage.Get(%s) %+v", key, err)
		return nil, "", http.StatusInternalServerError,
			e.New(0, "FetchObject", e.StorageUnavailable, "Could not fetch the file")
	}

	return content, contentType, http.StatusOK, nil
}
