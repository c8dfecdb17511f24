package metric

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360studio/semcat/errors"
)

// Registry manages the Prometheus registry, the core metric set and any
// extra collectors callers register.
//
// Thread Safety:
// Safe for concurrent use.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	metrics            *Metrics

	mu         sync.Mutex
	registered map[string]prometheus.Collector
}

// NewRegistry creates a registry with the core metrics and the Go runtime
// collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		metrics:            NewMetrics(),
		registered:         make(map[string]prometheus.Collector),
	}
	for _, c := range r.metrics.collectors() {
		r.prometheusRegistry.MustRegister(c)
	}
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Metrics returns the core metric set.
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register adds a named collector. Registering the same name twice fails.
func (r *Registry) Register(name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.registered[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("collector %q already registered", name),
			"metric", "Register", "duplicate collector")
	}
	if err := r.prometheusRegistry.Register(c); err != nil {
		return errors.WrapInvalid(err, "metric", "Register", "register "+name)
	}
	r.registered[name] = c
	return nil
}

// Unregister removes a named collector. Returns false if it was not
// registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.registered[name]
	if !ok {
		return false
	}
	delete(r.registered, name)
	return r.prometheusRegistry.Unregister(c)
}
