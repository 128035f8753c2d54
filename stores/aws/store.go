package aws

import (
	"bytes"
	"context"
	"errors"
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/hub"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Store keeps one object per key under prefix. Storage calls are
// synchronous, so each call runs under its own timeout.
type s3Store struct {
	client  objectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	hub     *hub.Hub
	tab     string
}

// NewStore creates a new S3-based store using the default AWS configuration.
func NewStore(bucketName, prefix string, timeout time.Duration) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newStore(s3.NewFromConfig(cfg), bucketName, prefix, timeout), nil
}

func newStore(client objectAPI, bucket, prefix string, timeout time.Duration) *s3Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &s3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: timeout,
		hub:     hub.New(),
		tab:     hub.NewTab(),
	}
}

func (s *s3Store) Tab() core.Storage {
	c := *s
	c.tab = hub.NewTab()
	return &c
}

func (s *s3Store) objectKey(key string) (string, error) {
	// Keys are simple names; a path would escape the prefix.
	if key == "" || key == "." || key == ".." || path.Base(key) != key {
		return "", fmt.Errorf("invalid key %q: %w", key, core.ErrValidation)
	}
	return path.Join(s.prefix, key), nil
}

func (s *s3Store) GetItem(key string) (string, bool, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read item %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *s3Store) SetItem(key, value string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader([]byte(value)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "bucket": s.bucket}).WithError(err).Error("Failed to put item")
		return fmt.Errorf("failed to put item %s: %w", key, err)
	}

	s.hub.Notify(s.tab, core.StorageEvent{Key: key, NewValue: value})
	return nil
}

// RemoveItem deletes the object. S3 deletes are idempotent, so the change is
// always announced.
func (s *s3Store) RemoveItem(key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", key, err)
	}

	s.hub.Notify(s.tab, core.StorageEvent{Key: key, Removed: true})
	return nil
}

func (s *s3Store) AddChangeListener(key string, fn core.ChangeListener) func() {
	return s.hub.Listen(s.tab, key, fn)
}
