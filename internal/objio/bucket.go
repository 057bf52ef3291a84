// Package objio adapts thanos-io/objstore's streaming Bucket interface to
// the random-access and JSON-document access patterns tablemesh's format
// adapters need: parsing Parquet footers out of data files named by a
// DataFile.Path, and reading/writing the small JSON/text metadata documents
// every format keeps (Delta _delta_log entries, Iceberg metadata/manifest
// JSON, Hudi timeline instants).
package objio

import (
	"context"
	"fmt"
	"io"

	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/errs"
)

// BucketReaderAt adapts an objstore.Bucket object to io.ReaderAt via
// GetRange, so Parquet footer/column-chunk readers can seek within a data
// file without pulling it into memory whole.
type BucketReaderAt struct {
	ctx    context.Context
	bucket objstore.Bucket
	name   string
	size   int64
}

// NewBucketReaderAt opens name for random-access reads, resolving its size
// up front via the bucket's Attributes call.
func NewBucketReaderAt(ctx context.Context, bucket objstore.Bucket, name string) (*BucketReaderAt, error) {
	attrs, err := bucket.Attributes(ctx, name)
	if err != nil {
		return nil, errs.Wrap(errs.SourceReadError, err, "reading attributes for %q", name)
	}
	return &BucketReaderAt{ctx: ctx, bucket: bucket, name: name, size: attrs.Size}, nil
}

// Size returns the object's length in bytes, as reported when it was opened.
func (r *BucketReaderAt) Size() int64 { return r.size }

// ReadAt implements io.ReaderAt over objstore.Bucket.GetRange. It refuses
// reads past the object's recorded size rather than silently short-reading,
// matching io.ReaderAt's contract that a partial read other than at EOF is
// an error.
func (r *BucketReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("objio: negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if off+length > r.size {
		length = r.size - off
	}
	rc, err := r.bucket.GetRange(r.ctx, r.name, off, length)
	if err != nil {
		return 0, errs.Wrap(errs.SourceReadError, err, "GetRange on %q at offset %d", r.name, off)
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p[:length])
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, errs.Wrap(errs.SourceReadError, err, "reading range of %q", r.name)
	}
	if int64(n) < int64(len(p)) && off+int64(n) >= r.size {
		return n, io.EOF
	}
	return n, nil
}
