package objio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/thanos-io/objstore"

	json "github.com/tablemesh/tablemesh/internal/codec"
	"github.com/tablemesh/tablemesh/internal/errs"
)

// GetJSON reads name and unmarshals it as JSON into v.
func GetJSON(ctx context.Context, bucket objstore.Bucket, name string, v any) error {
	rc, err := bucket.Get(ctx, name)
	if err != nil {
		return errs.Wrap(errs.SourceReadError, err, "reading %q", name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return errs.Wrap(errs.SourceReadError, err, "reading body of %q", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(errs.InvalidSchema, err, "decoding %q", name)
	}
	return nil
}

// PutJSON marshals v and uploads it to name.
func PutJSON(ctx context.Context, bucket objstore.Bucket, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "encoding %q", name)
	}
	if err := bucket.Upload(ctx, name, bytes.NewReader(data)); err != nil {
		return errs.Wrap(errs.TargetWriteError, err, "uploading %q", name)
	}
	return nil
}

// ListJSONLines reads name as newline-delimited JSON (the shape of a Delta
// _delta_log commit file) and unmarshals each non-blank line into a new
// instance built by newItem, calling onLine for each.
func ListJSONLines(ctx context.Context, bucket objstore.Bucket, name string, newItem func() any, onLine func(any) error) error {
	rc, err := bucket.Get(ctx, name)
	if err != nil {
		return errs.Wrap(errs.SourceReadError, err, "reading %q", name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return errs.Wrap(errs.SourceReadError, err, "reading body of %q", name)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item := newItem()
		if err := json.Unmarshal([]byte(line), item); err != nil {
			return errs.Wrap(errs.InvalidSchema, err, "decoding line of %q", name)
		}
		if err := onLine(item); err != nil {
			return err
		}
	}
	return nil
}

// ListDir lists the object names directly under dir (non-recursive),
// sorted lexically, matching objstore's Iter semantics.
func ListDir(ctx context.Context, bucket objstore.Bucket, dir string) ([]string, error) {
	var names []string
	err := bucket.Iter(ctx, dir, func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.SourceReadError, err, "listing %q", dir)
	}
	sort.Strings(names)
	return names, nil
}
