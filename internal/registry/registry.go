// Package registry is the process-wide table-format adapter factory
// registry: each format package registers its source/target constructors
// once at init time, and the CLI looks them up by model.TableFormat
// without importing every format package directly.
package registry

import (
	"sync"

	"github.com/thanos-io/objstore"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
	"github.com/tablemesh/tablemesh/internal/source"
	"github.com/tablemesh/tablemesh/internal/target"
)

// SourceFactory builds a source.Adapter for a table at basePath.
type SourceFactory func(bucket objstore.Bucket, basePath string) (source.Adapter, error)

// TargetFactory builds a target.Adapter for a table at basePath.
type TargetFactory func(bucket objstore.Bucket, basePath string) (target.Adapter, error)

var (
	mu              sync.Mutex
	sourceFactories = map[model.TableFormat]SourceFactory{}
	targetFactories = map[model.TableFormat]TargetFactory{}
)

// RegisterSource makes a source adapter factory available under format.
// Called once per format package, typically from an init func.
func RegisterSource(format model.TableFormat, f SourceFactory) {
	mu.Lock()
	defer mu.Unlock()
	sourceFactories[format] = f
}

// RegisterTarget makes a target adapter factory available under format.
func RegisterTarget(format model.TableFormat, f TargetFactory) {
	mu.Lock()
	defer mu.Unlock()
	targetFactories[format] = f
}

// NewSource builds a source.Adapter for format, or a ConfigError if no
// factory was registered for it.
func NewSource(format model.TableFormat, bucket objstore.Bucket, basePath string) (source.Adapter, error) {
	mu.Lock()
	f, ok := sourceFactories[format]
	mu.Unlock()
	if !ok {
		return nil, errs.New(errs.ConfigError, "no source adapter registered for format %q", format)
	}
	return f(bucket, basePath)
}

// NewTarget builds a target.Adapter for format, or a ConfigError if no
// factory was registered for it.
func NewTarget(format model.TableFormat, bucket objstore.Bucket, basePath string) (target.Adapter, error) {
	mu.Lock()
	f, ok := targetFactories[format]
	mu.Unlock()
	if !ok {
		return nil, errs.New(errs.ConfigError, "no target adapter registered for format %q", format)
	}
	return f(bucket, basePath)
}
