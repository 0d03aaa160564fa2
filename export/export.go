// Package export sends analysis results to external destinations.
//
// An Exporter overwrites its destination with a summary table, so running the
// same analysis twice leaves the destination in the same state as running it
// once. A SeriesSink stores the resampled series and a FileSink stores
// rendered charts.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mtraver/air-quality-analysis/observation"
	"github.com/mtraver/air-quality-analysis/summary"
)

var (
	ErrAuthentication      = errors.New("export: authentication failed")
	ErrDestinationNotFound = errors.New("export: destination not found")
)

type Exporter interface {
	// Export replaces the destination's contents with t.
	Export(ctx context.Context, t summary.Table) error
}

type SeriesSink interface {
	// WriteSeries stores bins under the given dataset name. Writing the same
	// bins again must not duplicate them.
	WriteSeries(ctx context.Context, dataset string, bins []observation.Bin) error
}

type FileSink interface {
	// StoreFiles copies the files at paths under the given dataset name,
	// replacing files of the same name.
	StoreFiles(ctx context.Context, dataset string, paths []string) error
}

// Registry holds named Exporters, SeriesSinks and FileSinks.
type Registry struct {
	mu        sync.Mutex
	exporters map[string]Exporter
	sinks     map[string]SeriesSink
	files     map[string]FileSink
}

func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[string]Exporter),
		sinks:     make(map[string]SeriesSink),
		files:     make(map[string]FileSink),
	}
}

// Register adds an Exporter under name, replacing any previous one.
func (r *Registry) Register(name string, e Exporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exporters[name] = e
}

// RegisterSink adds a SeriesSink under name, replacing any previous one.
func (r *Registry) RegisterSink(name string, s SeriesSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[name] = s
}

// RegisterFileSink adds a FileSink under name, replacing any previous one.
func (r *Registry) RegisterFileSink(name string, s FileSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[name] = s
}

// Get looks up an Exporter by name. It returns an error if no exporter with
// the given name is registered.
func (r *Registry) Get(name string) (Exporter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.exporters[name]
	if !ok {
		return nil, fmt.Errorf("export: unknown exporter %q", name)
	}
	return e, nil
}

// Exporters returns the names of the registered Exporters in sorted order.
func (r *Registry) Exporters() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sortedKeys(r.exporters)
}

// Sinks returns the registered SeriesSinks keyed by name.
func (r *Registry) Sinks() map[string]SeriesSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	sinks := make(map[string]SeriesSink, len(r.sinks))
	for k, v := range r.sinks {
		sinks[k] = v
	}
	return sinks
}

// FileSinks returns the registered FileSinks keyed by name.
func (r *Registry) FileSinks() map[string]FileSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := make(map[string]FileSink, len(r.files))
	for k, v := range r.files {
		files[k] = v
	}
	return files
}

// Len returns the total number of registered destinations of all kinds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.exporters) + len(r.sinks) + len(r.files)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
