// Package s3store exposes an S3 bucket prefix as a lib.Storage root so the
// inventory engine can walk s3://bucket/prefix the same way it walks a
// local directory.
package s3store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/photosphere/file-regress-go/lib"
)

// Scheme is the URI prefix handled by this package.
const Scheme = "s3://"

// API is the subset of *s3.Client the store calls.
type API interface {
	s3v2.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
}

// Store is a lib.Storage over every object under one key prefix. Keys ending
// in "/" are directory markers and never reported as files.
type Store struct {
	client API
	uri    string
	bucket string
	prefix string
	log    *lib.Logger
}

// IsURI reports whether root names an S3 location.
func IsURI(root string) bool {
	return strings.HasPrefix(root, Scheme)
}

// ParseURI splits s3://bucket/some/prefix into bucket and a prefix that is
// either empty or ends in "/".
func ParseURI(uri string) (bucket, prefix string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 uri has no bucket: %q", uri)
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = path.Clean(prefix) + "/"
	}
	return bucket, prefix, nil
}

// New returns a Store for uri backed by client. log may be nil.
func New(client API, uri string, log *lib.Logger) (*Store, error) {
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = lib.NopLogger()
	}
	return &Store{client: client, uri: uri, bucket: bucket, prefix: prefix, log: log}, nil
}

func (s *Store) Root() string { return s.uri }

// Stat treats a prefix with no objects as missing: S3 has no empty directories.
func (s *Store) Stat(ctx context.Context) error {
	out, err := s.client.ListObjectsV2(ctx, &s3v2.ListObjectsV2Input{
		Bucket:  awsv2.String(s.bucket),
		Prefix:  awsv2.String(s.prefix),
		MaxKeys: awsv2.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
	}
	if len(out.Contents) == 0 {
		return fmt.Errorf("no objects under s3://%s/%s: %w", s.bucket, s.prefix, fs.ErrNotExist)
	}
	return nil
}

// Walk pages through ListObjectsV2 and calls fn with each key relative to the prefix.
func (s *Store) Walk(ctx context.Context, fn lib.WalkFileFunc) error {
	paginator := s3v2.NewListObjectsV2Paginator(s.client, &s3v2.ListObjectsV2Input{
		Bucket: awsv2.String(s.bucket),
		Prefix: awsv2.String(s.prefix),
	})
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		pages++
		for _, object := range page.Contents {
			rel := strings.TrimPrefix(awsv2.ToString(object.Key), s.prefix)
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}
			if err := fn(rel); err != nil {
				return err
			}
		}
	}
	s.log.Debug().Str("bucket", s.bucket).Str("prefix", s.prefix).Int("pages", pages).Msg("s3 walk complete")
	return nil
}

// Glob matches pattern against every key and every implied directory under
// the prefix, mirroring what a filesystem glob would return.
func (s *Store) Glob(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", lib.ErrBadPattern, pattern)
	}
	seen := make(map[string]bool)
	var matches []string
	consider := func(rel string) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		if ok, _ := doublestar.Match(pattern, rel); ok {
			matches = append(matches, rel)
		}
	}
	err := s.Walk(ctx, func(rel string) error {
		consider(rel)
		for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
			consider(dir)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Open streams the object body; the caller closes it.
func (s *Store) Open(ctx context.Context, rel string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.prefix + rel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return out.Body, nil
}
