package hudi

import (
	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/registry"
	"github.com/tablemesh/tablemesh/internal/target"
)

func init() {
	registry.RegisterTarget(model.FormatHudi, func(bucket objstore.Bucket, basePath string) (target.Adapter, error) {
		return New(bucket, basePath), nil
	})
}
