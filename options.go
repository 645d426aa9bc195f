// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

type config struct {
	capacity     int
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
	onLeak       func(*LeakError)

	logger *slog.Logger
}

// Option to pass to NewPair, Attach and Connect.
type Option func(*config) error

// WithCapacity sets the bound of each in-process queue. It is rounded up to
// a power of two. Remote carriers ignore it.
func WithCapacity(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("%w: capacity %d", ErrInvalidOption, n)
		}
		c.capacity = n
		return nil
	}
}

// WithLogHandler specifies which `slog.Handler` to use.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted by
// your sessions.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced by a session.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithLeakHandler replaces the default reaction to an abandoned session,
// which is to panic with the *LeakError. The handler may run on the
// runtime's cleanup goroutine.
func WithLeakHandler(fn func(*LeakError)) Option {
	return func(c *config) error {
		if fn == nil {
			return fmt.Errorf("%w: nil leak handler", ErrInvalidOption)
		}
		c.onLeak = fn
		return nil
	}
}

func panicOnLeak(err *LeakError) { panic(err) }

// labels returns the metric labels of a session over a carrier of kind.
func (c *config) labels(kind string) []metrics.Label {
	return append([]metrics.Label{LabelCarrier.M(kind)}, c.metricLabels...)
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		capacity: defaultCapacity,
		onLeak:   panicOnLeak,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	// Logging implementations.
	if c.logHandler != nil {
		c.logger = slog.New(c.logHandler)
	} else {
		c.logger = slog.Default()
	}

	// Metrics implementations.
	if c.msink == nil {
		c.msink = metrics.Default()
	}
	return c, nil
}
