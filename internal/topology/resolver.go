package topology

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/fetcher"
	"github.com/t77yq/bdmon/internal/model"
)

// BeanFetcher fetches JMX documents from one endpoint
type BeanFetcher interface {
	FetchBeans(ctx context.Context, req fetcher.Request) ([]model.Document, error)
}

// Spec describes how to resolve one leader/follower service
type Spec struct {
	Service    string
	Candidates []string
	// Workers, when set, replaces discovery from the leader payload
	Workers    []string
	WorkerPort int

	Scheme  string
	Path    string
	Timeout time.Duration

	IsActive       func(docs []model.Document) bool
	ExtractWorkers func(docs []model.Document) []string
	// StopAtLeader ends probing once the active candidate is found
	StopAtLeader bool
}

// Candidate is the probe result of one candidate leader
type Candidate struct {
	Endpoint string
	Docs     []model.Document
	Active   bool
	Err      error
}

// Topology is the resolved set of endpoints for one harvest pass
type Topology struct {
	Service    string
	Candidates []string
	Probed     []Candidate
	Active     string
	Workers    []string
}

// Leader returns the probe result of the active candidate, or nil
func (t *Topology) Leader() *Candidate {
	for i := range t.Probed {
		if t.Probed[i].Active {
			return &t.Probed[i]
		}
	}
	return nil
}

// Resolver finds the active leader of a service and its workers
type Resolver struct {
	logger  *zap.Logger
	fetcher BeanFetcher
}

// NewResolver creates a new topology resolver
func NewResolver(fetcher BeanFetcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		logger:  logger.Named("topology"),
		fetcher: fetcher,
	}
}

// Resolve probes the candidates in order. The first active candidate becomes
// the leader and only its documents yield workers. When no candidate is active
// the probed results are still returned along with an ErrTopology error.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (*Topology, error) {
	topo := &Topology{
		Service:    spec.Service,
		Candidates: spec.Candidates,
	}

	for _, endpoint := range spec.Candidates {
		docs, err := r.fetcher.FetchBeans(ctx, fetcher.Request{
			Scheme:   spec.Scheme,
			Endpoint: endpoint,
			Path:     spec.Path,
			Timeout:  spec.Timeout,
		})
		if err != nil {
			r.logger.Warn("Failed to probe candidate",
				zap.String("service", spec.Service),
				zap.String("endpoint", endpoint),
				zap.Error(err))
			topo.Probed = append(topo.Probed, Candidate{Endpoint: endpoint, Err: err})
			continue
		}

		candidate := Candidate{Endpoint: endpoint, Docs: docs}
		if topo.Active == "" && spec.IsActive != nil && spec.IsActive(docs) {
			candidate.Active = true
			topo.Active = endpoint
			r.logger.Info("Resolved active leader",
				zap.String("service", spec.Service),
				zap.String("endpoint", endpoint))
		}
		topo.Probed = append(topo.Probed, candidate)

		if candidate.Active && spec.StopAtLeader {
			break
		}
	}

	leader := topo.Leader()
	if leader == nil {
		return topo, &model.HarvestError{
			Kind: model.ErrTopology,
			Err:  fmt.Errorf("%s: none of %d candidates is active", spec.Service, len(spec.Candidates)),
		}
	}

	workers := spec.Workers
	if len(workers) == 0 && spec.ExtractWorkers != nil {
		workers = spec.ExtractWorkers(leader.Docs)
	}
	topo.Workers = WithDefaultPort(workers, spec.WorkerPort)

	r.logger.Info("Resolved workers",
		zap.String("service", spec.Service),
		zap.Int("count", len(topo.Workers)))
	return topo, nil
}

// WithDefaultPort appends port to entries that lack one and drops duplicates
func WithDefaultPort(endpoints []string, port int) []string {
	seen := make(map[string]bool, len(endpoints))
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		if !strings.Contains(ep, ":") && port > 0 {
			ep = net.JoinHostPort(ep, strconv.Itoa(port))
		}
		if seen[ep] {
			continue
		}
		seen[ep] = true
		out = append(out, ep)
	}
	return out
}

// Host strips the port from an endpoint
func Host(endpoint string) string {
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return strings.SplitN(endpoint, ":", 2)[0]
}
