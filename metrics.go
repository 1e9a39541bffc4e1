// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Metrics are used by the "-d stats" debug mode that dumps timing stats of
// various actions. Use metricRecord("foobar") at the top of a function.

func emptyFunc() {
}

// metricRecord starts a timing span for name and returns the function that
// ends it. It is a no-op unless EnableMetrics was called.
func metricRecord(name string) func() {
	if gMetrics == nil {
		return emptyFunc
	}
	m := gMetrics.GetMetric(name)
	start := time.Now()
	return func() {
		m.count++
		m.sum += time.Since(start)
	}
}

// A single metrics we're tracking, like "depfile load time".
type Metric struct {
	name string
	// Number of times we've hit the code path.
	count int
	// Total time we've spent on the code path.
	sum time.Duration
}

// Metrics stores the metrics and prints the report.
type Metrics struct {
	metrics map[string]*Metric
}

func NewMetrics() *Metrics {
	return &Metrics{
		metrics: map[string]*Metric{},
	}
}

// The metrics being recorded, nil when disabled.
//
// It is not safe for concurrent use; metrics are recorded from the goroutine
// driving the parser and the subprocess engine.
var gMetrics *Metrics

// EnableMetrics starts recording metrics and returns the recorder.
func EnableMetrics() *Metrics {
	if gMetrics == nil {
		gMetrics = NewMetrics()
	}
	return gMetrics
}

// DisableMetrics stops recording metrics.
func DisableMetrics() {
	gMetrics = nil
}

func (m *Metrics) GetMetric(name string) *Metric {
	metric, ok := m.metrics[name]
	if !ok {
		metric = &Metric{name: name}
		m.metrics[name] = metric
	}
	return metric
}

// Count returns how many times name was recorded.
func (m *Metrics) Count(name string) int {
	if metric, ok := m.metrics[name]; ok {
		return metric.count
	}
	return 0
}

// Report prints a summary report to w.
func (m *Metrics) Report(w io.Writer) {
	width := len("metric")
	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		if j := len(name); j > width {
			width = j
		}
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%-*s\t%-6s\t%-10s\t%s\n", width, "metric", "count", "avg", "total")
	for _, name := range names {
		metric := m.metrics[name]
		avg := metric.sum / time.Duration(metric.count)
		fmt.Fprintf(w, "%-*s\t%-6d\t%-10s\t%-10s\n", width, name, metric.count, avg.Round(time.Microsecond), metric.sum.Round(time.Microsecond))
	}
}
