package storage

import "context"

// Service writes archive objects to remote object storage.
type Service interface {
	// PutObject stores body under key and returns its s3:// location.
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error)
}
