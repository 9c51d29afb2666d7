// Package metrics emits one structured JSON document per CLI run, so batch
// outcomes can be collected by whatever tails the output (a shell script, a
// log shipper) without parsing human-readable summaries.
//
// The document carries a _metrics directive naming the namespace, dimension
// keys and metric definitions, followed by the dimension, metric and
// property values as top-level fields.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitNone         = "None"
)

// metricDef holds the name and unit for a single metric.
type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// directive is the _metrics metadata block.
type directive struct {
	Timestamp  int64       `json:"Timestamp"`
	Namespace  string      `json:"Namespace"`
	Dimensions []string    `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use; create one per run.
type Recorder struct {
	namespace  string
	out        io.Writer
	now        func() time.Time
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]interface{}
}

// New creates a Recorder that flushes to w under the given namespace.
func New(namespace string, w io.Writer) *Recorder {
	return &Recorder{
		namespace:  namespace,
		out:        w,
		now:        time.Now,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]interface{}),
	}
}

// Dimension adds a dimension key-value pair, e.g. the command name.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric.
func (r *Recorder) Count(name string, n int) *Recorder {
	return r.Metric(name, float64(n), UnitCount)
}

// Duration records an elapsed time in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field to the document.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as a single JSON line. A recorder with no
// metrics writes nothing. After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() error {
	if len(r.metrics) == 0 {
		return nil
	}

	metricDefs := make([]metricDef, 0, len(r.metrics))
	for _, m := range r.metrics {
		metricDefs = append(metricDefs, m)
	}
	sort.Slice(metricDefs, func(i, j int) bool { return metricDefs[i].Name < metricDefs[j].Name })

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]interface{})
	doc["_metrics"] = directive{
		Timestamp:  r.now().UnixMilli(),
		Namespace:  r.namespace,
		Dimensions: dimKeys,
		Metrics:    metricDefs,
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(data)); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
