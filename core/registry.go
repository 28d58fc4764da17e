package core

import (
	"slices"

	"github.com/huangsam/perfwatch/internal/collector"
	"github.com/huangsam/perfwatch/internal/contract"
	"go.uber.org/zap"
)

// Registry holds the collectors that take part in an aggregation round.
// Configuration, not code presence, decides what is active.
type Registry struct {
	cfg        *contract.Config
	logger     *zap.Logger
	collectors []contract.Collector
	ids        map[string]struct{}
}

// NewRegistry creates an empty registry filtered by cfg.EnabledCollectors.
func NewRegistry(cfg *contract.Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:    cfg,
		logger: logger.Named("registry"),
		ids:    make(map[string]struct{}),
	}
}

// RegisterCollector activates c only if its ID is enabled. It reports whether c was added.
func (r *Registry) RegisterCollector(c contract.Collector) bool {
	id := c.ID()
	if !r.cfg.IsCollectorEnabled(id) {
		r.logger.Info("skipping collector not enabled in configuration", zap.String("collector", id))
		return false
	}
	if _, dup := r.ids[id]; dup {
		r.logger.Warn("ignoring duplicate collector registration", zap.String("collector", id))
		return false
	}
	r.ids[id] = struct{}{}
	r.collectors = append(r.collectors, c)
	r.logger.Debug("registered collector", zap.String("collector", id))
	return true
}

// RegisterDefaultCollectors runs the enablement filter over every built-in collector.
func (r *Registry) RegisterDefaultCollectors(deps collector.Deps) {
	for _, c := range collector.Builtins(deps) {
		r.RegisterCollector(c)
	}
	for _, id := range r.cfg.EnabledCollectors {
		if _, ok := r.ids[id]; !ok {
			r.logger.Warn("enabled collector is not known", zap.String("collector", id))
		}
	}
}

// Collectors returns the active collectors in registration order.
func (r *Registry) Collectors() []contract.Collector {
	return slices.Clone(r.collectors)
}

// IDs returns the active collector IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.collectors))
	for i, c := range r.collectors {
		out[i] = c.ID()
	}
	return out
}

// Len returns the number of active collectors.
func (r *Registry) Len() int {
	return len(r.collectors)
}
