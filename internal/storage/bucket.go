// Package storage stores intake uploads in a gocloud blob bucket. The bucket
// URL picks the driver: file://, s3://, gs://, azblob:// or mem://.
package storage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

const (
	deleteTimeout   = 10 * time.Second
	signedURLExpiry = 7 * 24 * time.Hour
)

var ErrObjectNotFound = errors.New("object not found")

// Bucket writes, deletes and addresses objects of one bucket.
type Bucket struct {
	bucket        *blob.Bucket
	publicBaseURL string
}

// Open opens the bucket at bucketURL and checks it is reachable. When
// publicBaseURL is set, download URLs are built from it; otherwise signed
// URLs are requested from the driver.
func Open(ctx context.Context, bucketURL, publicBaseURL string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", bucketURL)
	}
	ok, err := b.IsAccessible(ctx)
	if err != nil {
		_ = b.Close()
		return nil, errors.Wrapf(err, "failed to check bucket accessibility %s", bucketURL)
	} else if !ok {
		_ = b.Close()
		return nil, errors.Newf("bucket %s is not accessible", bucketURL)
	}
	return New(b, publicBaseURL), nil
}

// New wraps an already opened bucket.
func New(b *blob.Bucket, publicBaseURL string) *Bucket {
	return &Bucket{bucket: b, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Upload streams r into key. A failed copy aborts the write so no partial
// object is left behind.
func (b *Bucket) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrapf(err, "failed to open writer for %s", key)
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to commit %s", key)
	}
	return nil
}

// Delete removes key.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	if err := b.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return errors.Wrapf(ErrObjectNotFound, "%s", key)
		}
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

// Download opens key for reading. The caller closes the reader.
func (b *Bucket) Download(ctx context.Context, key string) (*blob.Reader, error) {
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(ErrObjectNotFound, "%s", key)
		}
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return r, nil
}

// Exists reports whether key is stored.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := b.bucket.Exists(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check %s", key)
	}
	return ok, nil
}

// URL returns the download URL of key.
func (b *Bucket) URL(ctx context.Context, key string) (string, error) {
	if b.publicBaseURL != "" {
		parts := strings.Split(key, "/")
		for i, p := range parts {
			parts[i] = url.PathEscape(p)
		}
		return b.publicBaseURL + "/" + strings.Join(parts, "/"), nil
	}
	u, err := b.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{
		Method: http.MethodGet,
		Expiry: signedURLExpiry,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign url for %s", key)
	}
	return u, nil
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}
