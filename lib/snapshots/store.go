// Package snapshots uploads, fetches and lists chain snapshots and debug
// symbols in an S3 bucket. It is the host-side counterpart of the uploader
// image the node tooling runs next to the snapshots volume.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/everitoken/evtops/lib/logger"
)

// ErrNotFound is returned by Fetch when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Options configure a Store. Explicit credentials take precedence over the
// ambient AWS credential chain.
type Options struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Store is an S3-backed snapshot and artifact store.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds a Store from the given options.
func New(ctx context.Context, opts Options) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(cfg), bucket: opts.Bucket}, nil
}

// Bucket returns the bucket this store writes to.
func (s *Store) Bucket() string {
	return s.bucket
}

// BlockMeta is the chain position a snapshot was taken at, stored as object
// metadata so listings need no download.
type BlockMeta struct {
	ID       string
	Num      string
	Time     string
	Postgres bool
}

func (m BlockMeta) metadata() map[string]string {
	return map[string]string{
		"block-id":   m.ID,
		"block_num":  m.Num,
		"block_time": m.Time,
		"postgres":   strconv.FormatBool(m.Postgres),
	}
}

// ObjectKey derives the store key for a snapshot file: its base name.
func ObjectKey(file string) string {
	return filepath.Base(file)
}

// Upload puts a snapshot file under key with its block metadata attached.
// Snapshots are published world-readable in infrequent-access storage.
func (s *Store) Upload(ctx context.Context, file, key string, meta BlockMeta) error {
	if key == "" {
		key = ObjectKey(file)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	log := logger.FromContext(ctx)
	log.DebugContext(ctx, "uploading object", "bucket", s.bucket, "key", key)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         f,
		Metadata:     meta.metadata(),
		StorageClass: s3types.StorageClassStandardIa,
		ACL:          s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// UploadRaw puts an arbitrary file under key with no metadata.
func (s *Store) UploadRaw(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Fetch downloads the object under key into dest. A missing object is
// ErrNotFound, anything else is an infrastructure failure.
func (s *Store) Fetch(ctx context.Context, key, dest string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

// Entry is one listed snapshot with its stored block metadata.
type Entry struct {
	Key      string
	BlockNum string
	Postgres string
}

// List returns up to n snapshots with the metadata columns operators care
// about.
func (s *Store) List(ctx context.Context, n int) ([]Entry, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(n)),
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	entries := make([]Entry, 0, len(out.Contents))
	for _, obj := range out.Contents {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			return nil, fmt.Errorf("head object %s: %w", aws.ToString(obj.Key), err)
		}
		entries = append(entries, Entry{
			Key:      aws.ToString(obj.Key),
			BlockNum: head.Metadata["block_num"],
			Postgres: head.Metadata["postgres"],
		})
	}
	return entries, nil
}
