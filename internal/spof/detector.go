// Package spof finds resources whose failure impacts at least one dependent
// and which show no sign of redundancy.
package spof

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Detector evaluates resources for single points of failure. It is safe for
// concurrent use.
type Detector struct {
	resolver *dependency.Resolver
	blast    *blastradius.Calculator
	config   Config
	logger   *logging.Logger
}

// NewDetector creates a detector. Dependents are counted with the blast
// radius calculator's propagation policy.
func NewDetector(resolver *dependency.Resolver, blast *blastradius.Calculator, config Config) *Detector {
	if config.ScanConcurrency <= 0 {
		config.ScanConcurrency = DefaultConfig().ScanConcurrency
	}
	return &Detector{
		resolver: resolver,
		blast:    blast,
		config:   config,
		logger:   logging.GetLogger("spof"),
	}
}

// Evaluate returns the SPOF verdict for id with its dependents and
// redundancy signals.
func (d *Detector) Evaluate(ctx context.Context, id string) (*Evaluation, error) {
	resource, err := d.resolver.Store().GetResource(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	return d.evaluate(ctx, *resource)
}

func (d *Detector) evaluate(ctx context.Context, resource graph.Resource) (*Evaluation, error) {
	res, err := d.resolver.Traverse(ctx, resource.ID, dependency.Downstream, 1, d.blast.Config().Propagates)
	if err != nil {
		return nil, err
	}
	peers, err := d.resolver.RedundantPeers(ctx, resource.ID)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		ResourceID:        resource.ID,
		ResourceType:      resource.Type,
		Dependents:        res.IDs(),
		RedundancySignals: RedundancySignals(resource, peers),
	}
	eval.DependentCount = len(eval.Dependents)
	eval.IsSPOF = eval.DependentCount >= 1 && len(eval.RedundancySignals) == 0
	return eval, nil
}

// IsSPOF reports whether id is a single point of failure.
func (d *Detector) IsSPOF(ctx context.Context, id string) (bool, error) {
	eval, err := d.Evaluate(ctx, id)
	if err != nil {
		return false, err
	}
	return eval.IsSPOF, nil
}

// FindAll scans the resources matching filter and returns every SPOF with
// its full blast radius. filter.Limit caps the number of SPOFs returned, not
// the number scanned. When ctx ends mid-scan the SPOFs found so far are
// returned with Complete=false together with a Timeout error.
func (d *Detector) FindAll(ctx context.Context, filter graph.ResourceFilter) (*Report, error) {
	start := time.Now()
	limit := filter.Limit
	filter.Limit = 0

	resources, err := d.resolver.Store().ListResources(ctx, filter)
	if err != nil {
		return nil, riskerr.Classify(err, "list resources")
	}

	var (
		mu      sync.Mutex
		entries []Entry
		scanned int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.ScanConcurrency)
	for _, r := range resources {
		g.Go(func() error {
			entry, err := d.scan(gctx, r)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			scanned++
			if entry != nil {
				entries = append(entries, *entry)
			}
			return nil
		})
	}
	scanErr := g.Wait()

	sortEntries(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []Entry{}
	}
	report := &Report{
		SPOFs:            entries,
		ResourcesScanned: scanned,
		Complete:         scanErr == nil,
	}

	if scanErr != nil {
		if riskerr.IsKind(scanErr, riskerr.KindTimeout) {
			d.logger.Warn("SPOF scan stopped after %d of %d resources: %v", scanned, len(resources), scanErr)
			return report, scanErr
		}
		return nil, scanErr
	}

	d.logger.InfoWithFields("SPOF scan complete",
		logging.Field("scanned", scanned),
		logging.Field("spofs", len(report.SPOFs)),
		logging.Field("duration", time.Since(start).String()))
	return report, nil
}

func (d *Detector) scan(ctx context.Context, r graph.Resource) (*Entry, error) {
	if err := riskerr.FromContext(ctx, "spof scan"); err != nil {
		return nil, err
	}
	eval, err := d.evaluate(ctx, r)
	if err != nil {
		return nil, err
	}
	if !eval.IsSPOF {
		return nil, nil
	}
	blast, err := d.blast.Calculate(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Resource:       r,
		DependentCount: eval.DependentCount,
		BlastRadius:    blast,
	}, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.BlastRadius.TotalAffected != b.BlastRadius.TotalAffected {
			return a.BlastRadius.TotalAffected > b.BlastRadius.TotalAffected
		}
		if a.DependentCount != b.DependentCount {
			return a.DependentCount > b.DependentCount
		}
		return a.Resource.ID < b.Resource.ID
	})
}
