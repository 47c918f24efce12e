package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

// S3Storage is the direct object-store client. It holds the long-lived
// credential, so in server mode only the bridge constructs one.
type S3Storage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	logger        *logger.Logger
}

var _ domain.ObjectStorage = (*S3Storage)(nil)

func NewS3Storage(cfg Config, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("s3")
	log.Info("Initializing S3 storage", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket), zap.Bool("use_ssl", cfg.UseSSL))

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket)
	}

	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: publicBase,
		logger:        log,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err == nil {
		s.logger.Info("Bucket created", zap.String("bucket", s.bucket))
		return nil
	}
	exists, errExists := s.client.BucketExists(ctx, s.bucket)
	if errExists == nil && exists {
		return nil
	}
	return fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", s.bucket, err, errExists)
}

// Upload always overwrites an existing object at path.
func (s *S3Storage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "no-cache",
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", path), zap.Error(err))
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", path, s.bucket, err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", info.Key), zap.String("etag", info.ETag), zap.Int64("size", info.Size))
	return nil
}

func (s *S3Storage) Get(ctx context.Context, path string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", path, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrObjectNotFound, path)
		}
		return nil, "", fmt.Errorf("failed to stat object %s: %w", path, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, stat.ContentType, nil
}

// Delete removes every path in one batch request.
func (s *S3Storage) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(paths))
	for _, p := range paths {
		objects <- minio.ObjectInfo{Key: p}
	}
	close(objects)

	var errs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		s.logger.Warn("RemoveObjects entry failed", zap.String("key", res.ObjectName), zap.Error(res.Err))
		errs = append(errs, fmt.Errorf("%s: %w", res.ObjectName, res.Err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %d of %d objects: %w", len(errs), len(paths), errors.Join(errs...))
	}
	return nil
}

func (s *S3Storage) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var out []domain.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		out = append(out, domain.ObjectInfo{
			Key:    obj.Key,
			Size:   obj.Size,
			IsFile: isFileEntry(obj.Key, obj.ETag),
		})
	}
	return out, nil
}

// isFileEntry filters out folder markers: they end in "/" or carry no ETag.
func isFileEntry(key, etag string) bool {
	return !strings.HasSuffix(key, "/") && etag != ""
}

func (s *S3Storage) PublicURL(path string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(path, "/")
}

type FolderStats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

type StorageStats struct {
	Documents FolderStats `json:"documents"`
	Images    FolderStats `json:"images"`
}

func (st StorageStats) TotalBytes() int64 { return st.Documents.Bytes + st.Images.Bytes }

// Stats lists the document and image folders in parallel and sums files only.
func Stats(ctx context.Context, store domain.ObjectStorage) (StorageStats, error) {
	var stats StorageStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := folderStats(gctx, store, domain.DocumentPrefix)
		stats.Documents = fs
		return err
	})
	g.Go(func() error {
		fs, err := folderStats(gctx, store, domain.ImagesPrefix)
		stats.Images = fs
		return err
	})
	if err := g.Wait(); err != nil {
		return StorageStats{}, err
	}
	return stats, nil
}

func folderStats(ctx context.Context, store domain.ObjectStorage, prefix string) (FolderStats, error) {
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return FolderStats{}, err
	}
	var fs FolderStats
	for _, o := range objects {
		if !o.IsFile {
			continue
		}
		fs.Files++
		fs.Bytes += o.Size
	}
	return fs, nil
}
