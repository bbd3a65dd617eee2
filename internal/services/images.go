package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ImageResolver turns stored product image references into URLs the
// payment page can fetch. Absolute http(s) references are used as is;
// anything else is an object key in the image bucket.
type ImageResolver struct {
	client  *minio.Client
	bucket  string
	baseURL string
	ttl     time.Duration
}

func NewImageResolver(client *minio.Client, bucket string, ttl time.Duration) *ImageResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	r := &ImageResolver{client: client, bucket: bucket, ttl: ttl}
	if client != nil {
		r.baseURL = strings.TrimSuffix(client.EndpointURL().String(), "/") + "/" + bucket + "/"
	}
	return r
}

// Resolve returns a URL for ref, or "" when there is nothing to show.
func (r *ImageResolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if r.baseURL != "" && strings.HasPrefix(ref, r.baseURL) {
		ref = strings.TrimPrefix(ref, r.baseURL)
	} else if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if r.client == nil {
		return "", nil
	}

	key := strings.TrimPrefix(ref, "/")
	signed, err := r.client.PresignedGetObject(ctx, r.bucket, key, r.ttl, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign image %s: %w", key, err)
	}
	return signed.String(), nil
}
