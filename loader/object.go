package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/bittermandel/molnett-lb/routing"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectGetter fetches objects from S3-compatible storage. *minio.Client
// satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Object is a Loader that reads a YAML routing document from a bucket.
type Object struct {
	Client ObjectGetter
	Bucket string
	Key    string
	Logger *zap.Logger
}

// NewObjectClient returns a client for the S3-compatible service at endpoint.
func NewObjectClient(endpoint, region, accessKeyID, secretAccessKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		Region: region,
	})
}

// Load downloads and parses the object.
func (l *Object) Load(ctx context.Context) (*routing.Tables, error) {
	obj, err := l.Client.GetObject(ctx, l.Bucket, l.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s/%s: %w", l.Bucket, l.Key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s/%s: %w", l.Bucket, l.Key, err)
	}

	t, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", l.Bucket, l.Key, err)
	}

	if l.Logger != nil {
		l.Logger.Info(
			"loaded routes from object storage",
			zap.String("bucket", l.Bucket),
			zap.String("key", l.Key),
			zap.Int("clients", t.Endpoints()),
			zap.Int("applications", t.Pools()),
		)
	}

	return t, nil
}
