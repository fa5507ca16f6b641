package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics Prometheus 指标集合，使用独立 registry
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	synthDuration   prometheus.Histogram
	synthTotal      *prometheus.CounterVec
	blocksPlaced    *prometheus.CounterVec
	itemsDropped    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	extractions     *prometheus.CounterVec
}

// New 注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		synthDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_synthesis_duration_seconds",
			Help:    "Time spent synthesizing one weekly schedule",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		synthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_synthesis_total",
			Help: "Synthesis runs by outcome",
		}, []string{"outcome"}),
		blocksPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_blocks_placed_total",
			Help: "Placed study sessions and activities",
		}, []string{"kind"}),
		itemsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_items_dropped_total",
			Help: "Study sessions and activity occurrences with no free slot",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_cache_lookups_total",
			Help: "Generated schedule cache lookups",
		}, []string{"result"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_extractions_total",
			Help: "Timetable import attempts by source and outcome",
		}, []string{"source", "outcome"}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.synthDuration, m.synthTotal, m.blocksPlaced, m.itemsDropped,
		m.cacheLookups, m.extractions,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest 记录请求耗时与次数
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	s := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, s).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, path, s).Inc()
}

// ObserveSynthesis 记录一次排布；err 非空时只计失败次数
func (m *Metrics) ObserveSynthesis(d time.Duration, study, activities, droppedStudy, droppedActivities int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.synthTotal.WithLabelValues("error").Inc()
		return
	}
	m.synthTotal.WithLabelValues("ok").Inc()
	m.synthDuration.Observe(d.Seconds())
	m.blocksPlaced.WithLabelValues("study").Add(float64(study))
	m.blocksPlaced.WithLabelValues("activity").Add(float64(activities))
	m.itemsDropped.WithLabelValues("study").Add(float64(droppedStudy))
	m.itemsDropped.WithLabelValues("activity").Add(float64(droppedActivities))
}

// RecordCacheLookup 排布缓存命中/未命中
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordExtraction 课表导入结果，source 为 upload / ics
func (m *Metrics) RecordExtraction(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.extractions.WithLabelValues(source, outcome).Inc()
}
