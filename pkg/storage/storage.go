package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

const defaultUploadExpiry = 15 * time.Minute

// ErrUnsupportedContentType is returned for uploads that are not images we serve.
var ErrUnsupportedContentType = errors.New("unsupported content type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type objectClient interface {
	PresignedPutObject(ctx context.Context, bucket, object string, expires time.Duration) (*url.URL, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// Client issues presigned uploads against an S3-compatible bucket.
type Client struct {
	objects       objectClient
	bucket        string
	publicBaseURL string
	expiry        time.Duration
	now           func() time.Time
}

// Upload is a presigned PUT target plus the URL the object will be served from.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New builds a storage client. It does not contact the endpoint.
func New(cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}
	raw, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(raw.EndpointURL().String(), "/"), cfg.Bucket)
	}
	if logg != nil {
		logg.Info(logg.WithFields(context.Background(), map[string]any{
			"endpoint": cfg.Endpoint,
			"bucket":   cfg.Bucket,
		}), "object storage configured")
	}
	return newClient(raw, cfg.Bucket, base, cfg.UploadURLExpiry), nil
}

func newClient(objects objectClient, bucket, publicBaseURL string, expiry time.Duration) *Client {
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}
	return &Client{
		objects:       objects,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		expiry:        expiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Ping verifies the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	exists, err := c.objects.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", c.bucket)
	}
	return nil
}

// PresignListingImage returns a PUT URL for a new image owned by userID.
func (c *Client) PresignListingImage(ctx context.Context, userID uuid.UUID, contentType string) (*Upload, error) {
	key, err := ListingImageKey(userID, contentType)
	if err != nil {
		return nil, err
	}
	signed, err := c.objects.PresignedPutObject(ctx, c.bucket, key, c.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &Upload{
		UploadURL: signed.String(),
		PublicURL: c.PublicURL(key),
		Key:       key,
		ExpiresAt: c.now().Add(c.expiry),
	}, nil
}

// Delete removes the object at key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	return c.objects.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL maps an object key to its served URL.
func (c *Client) PublicURL(key string) string {
	return c.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// ListingImageKey builds listings/<user>/<random><ext> for an accepted image type.
func ListingImageKey(userID uuid.UUID, contentType string) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return path.Join("listings", userID.String(), uuid.NewString()+ext), nil
}
