package delta

import (
	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/logging"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/registry"
	"github.com/tablemesh/tablemesh/internal/source"
)

func init() {
	registry.RegisterSource(model.FormatDelta, func(bucket objstore.Bucket, basePath string) (source.Adapter, error) {
		return New(bucket, basePath, logging.Nop()), nil
	})
}
