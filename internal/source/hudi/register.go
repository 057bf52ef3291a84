package hudi

import (
	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/registry"
	"github.com/tablemesh/tablemesh/internal/source"
)

func init() {
	registry.RegisterSource(model.FormatHudi, func(bucket objstore.Bucket, basePath string) (source.Adapter, error) {
		return New(bucket, basePath), nil
	})
}
