// Package roots turns a user-supplied root string into a lib.Storage.
package roots

import (
	"context"
	"fmt"

	"github.com/photosphere/file-regress-go/lib"
	"github.com/photosphere/file-regress-go/lib/s3store"
)

// Open returns the storage for root: s3:// URIs get an S3 store configured
// from cfg.S3, anything else is a local directory.
func Open(ctx context.Context, root string, cfg *lib.Config, log *lib.Logger) (lib.Storage, error) {
	if !s3store.IsURI(root) {
		return lib.NewLocalStorage(root, cfg.DirBatchSize), nil
	}
	var opts []s3store.Option
	if cfg.S3.Region != "" {
		opts = append(opts, s3store.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.Profile != "" {
		opts = append(opts, s3store.WithProfile(cfg.S3.Profile))
	}
	if cfg.S3.Endpoint != "" || cfg.S3.PathStyle {
		opts = append(opts, s3store.WithEndpoint(cfg.S3.Endpoint, cfg.S3.PathStyle))
	}
	client, err := s3store.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3store.New(client, root, log)
}
