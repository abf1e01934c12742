package spof

import (
	"github.com/moolen/riskgraph/internal/graph"
)

// Redundancy signal names.
const (
	SignalRedundantPeer     = "redundant_peer"
	SignalReplicaCount      = "replica_count"
	SignalAvailabilityZones = "availability_zones"
	SignalMultiAZ           = "multi_az"
	SignalInstanceCount     = "instance_count"
)

// RedundancySignals lists the evidence that r survives the loss of a single
// instance. peers are resources of the same type linked to r by a
// REDUNDANT_WITH edge. An empty result means no redundancy.
func RedundancySignals(r graph.Resource, peers []graph.Resource) []string {
	signals := []string{}
	for _, p := range peers {
		if p.Type == r.Type {
			signals = append(signals, SignalRedundantPeer+":"+p.ID)
		}
	}
	if n, ok := r.Attributes.Int("replica_count"); ok && n > 1 {
		signals = append(signals, SignalReplicaCount)
	}
	if n, ok := r.Attributes.Int("availability_zones"); ok && n > 1 {
		signals = append(signals, SignalAvailabilityZones)
	}
	if v, ok := r.Attributes.Bool("multi_az"); ok && v {
		signals = append(signals, SignalMultiAZ)
	}
	if r.Type == graph.TypeCompute {
		if n, ok := r.Attributes.Int("instance_count"); ok && n > 1 {
			signals = append(signals, SignalInstanceCount)
		}
	}
	return signals
}
