// Cellboard
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Cellboard.
//
// Cellboard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellboard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellboard.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics exposes the display pipeline's counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cellboard"

// Collector records link, pipeline and presentation activity.
type Collector struct {
	registry        *prometheus.Registry
	frames          *prometheus.CounterVec
	decodeErrors    *prometheus.CounterVec
	linkErrors      *prometheus.CounterVec
	linkConnected   *prometheus.GaugeVec
	suppressed      *prometheus.CounterVec
	stateChanges    *prometheus.CounterVec
	widgetFailures  *prometheus.CounterVec
	notifsDropped   *prometheus.CounterVec
	bucketSeconds   *prometheus.GaugeVec
	queueDrainSize  prometheus.Histogram
}

// NewCollector builds a collector on its own registry, which also carries
// the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received per link",
		}, []string{"link"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Frames dropped by the decoder per link and reason",
		}, []string{"link", "reason"}),
		linkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_errors_total",
			Help:      "Connection errors per link",
		}, []string{"link"}),
		linkConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_connected",
			Help:      "1 while the link is connected",
		}, []string{"link"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_suppressed_total",
			Help:      "Events the reconciler did not propagate",
		}, []string{"kind"}),
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "State events propagated to the display",
		}, []string{"state"}),
		widgetFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_failures_total",
			Help:      "Widget update failures per surface, -1 for overlays",
		}, []string{"surface"}),
		notifsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped because a consumer was full",
		}, []string{"method"}),
		bucketSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_seconds",
			Help:      "Seconds accumulated per state bucket",
		}, []string{"bucket"}),
		queueDrainSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_drain_events",
			Help:      "Events applied per read cycle after supersession",
			Buckets:   []float64{1, 2, 3, 4},
		}),
	}

	c.registry.MustRegister(
		c.frames,
		c.decodeErrors,
		c.linkErrors,
		c.linkConnected,
		c.suppressed,
		c.stateChanges,
		c.widgetFailures,
		c.notifsDropped,
		c.bucketSeconds,
		c.queueDrainSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) FrameReceived(link string) {
	c.frames.WithLabelValues(link).Inc()
}

func (c *Collector) DecodeFailed(link, reason string) {
	c.decodeErrors.WithLabelValues(link, reason).Inc()
}

func (c *Collector) LinkError(link string) {
	c.linkErrors.WithLabelValues(link).Inc()
}

func (c *Collector) SetLinkConnected(link string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	c.linkConnected.WithLabelValues(link).Set(v)
}

// EventSuppressed satisfies reconciler.Observer.
func (c *Collector) EventSuppressed(kind models.Kind) {
	c.suppressed.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) StateChanged(s models.State) {
	c.stateChanges.WithLabelValues(s.String()).Inc()
}

// WidgetFailed satisfies fanout.Observer.
func (c *Collector) WidgetFailed(surface int) {
	c.widgetFailures.WithLabelValues(strconv.Itoa(surface)).Inc()
}

func (c *Collector) NotificationDropped(method string) {
	c.notifsDropped.WithLabelValues(method).Inc()
}

func (c *Collector) QueueDrained(n int) {
	c.queueDrainSize.Observe(float64(n))
}

func (c *Collector) SetDurations(d models.StateBucketDurations) {
	c.bucketSeconds.WithLabelValues(models.BucketNormal.String()).Set(float64(d.NormalSeconds))
	c.bucketSeconds.WithLabelValues(models.BucketWarning.String()).Set(float64(d.WarningSeconds))
	c.bucketSeconds.WithLabelValues(models.BucketError.String()).Set(float64(d.ErrorSeconds))
}
