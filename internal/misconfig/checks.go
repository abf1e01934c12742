package misconfig

import (
	"github.com/moolen/riskgraph/internal/graph"
)

// CheckAvailabilityZone flags zonal resources deployed to a single zone.
// Attributes: availability_zones (int), multi_az (bool).
func CheckAvailabilityZone(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeDatabase, graph.TypeCache, graph.TypeCompute, graph.TypeLoadBalancer, graph.TypeContainer) {
		return nil
	}
	if enabled(attrs, "multi_az") || atLeast(attrs, "availability_zones", 2) {
		return nil
	}
	sev := SeverityMedium
	if t == graph.TypeDatabase {
		sev = SeverityHigh
	}
	return finding(NoAvailabilityZone, sev,
		"Spread the resource across at least two availability zones or enable multi-AZ deployment")
}

// CheckReplication flags data stores without replicas.
// Attributes: replica_count (int), replication_enabled (bool).
func CheckReplication(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeDatabase, graph.TypeCache, graph.TypeStorage, graph.TypeQueue) {
		return nil
	}
	if enabled(attrs, "replication_enabled") || atLeast(attrs, "replica_count", 2) {
		return nil
	}
	sev := SeverityMedium
	if t == graph.TypeDatabase {
		sev = SeverityHigh
	}
	return finding(NoReplication, sev,
		"Enable replication or add a read replica so data survives the loss of a node")
}

// CheckBackup flags persistent stores without backups.
// Attributes: backup_enabled (bool), backup_retention_days (int).
func CheckBackup(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeDatabase, graph.TypeStorage) {
		return nil
	}
	if enabled(attrs, "backup_enabled") || atLeast(attrs, "backup_retention_days", 1) {
		return nil
	}
	sev := SeverityHigh
	if t == graph.TypeDatabase {
		sev = SeverityCritical
	}
	return finding(NoBackup, sev,
		"Enable automated backups with a retention period that matches your recovery point objective")
}

// CheckFirewall flags reachable resources with no network filtering.
// Attributes: firewall_enabled (bool), security_groups ([]string).
func CheckFirewall(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeCompute, graph.TypeDatabase, graph.TypeCache, graph.TypeNetwork,
		graph.TypeLoadBalancer, graph.TypeContainer) {
		return nil
	}
	if enabled(attrs, "firewall_enabled") {
		return nil
	}
	if groups, ok := attrs.StringSlice("security_groups"); ok && len(groups) > 0 {
		return nil
	}
	return finding(NoFirewall, SeverityHigh,
		"Attach a firewall or security group that only admits the traffic the resource needs")
}

// CheckEncryption flags data at rest stored in clear.
// Attributes: encryption_at_rest (bool).
func CheckEncryption(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeDatabase, graph.TypeStorage, graph.TypeCache, graph.TypeQueue) {
		return nil
	}
	if enabled(attrs, "encryption_at_rest") {
		return nil
	}
	sev := SeverityMedium
	if t == graph.TypeDatabase || t == graph.TypeStorage {
		sev = SeverityHigh
	}
	return finding(NoEncryption, sev,
		"Enable encryption at rest with a managed key")
}

// CheckRedundancy flags stateless tiers running a single instance.
// Attributes: instance_count (int), autoscaling_enabled (bool).
func CheckRedundancy(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !applies(t, graph.TypeCompute, graph.TypeLoadBalancer, graph.TypeNetwork, graph.TypeContainer, graph.TypeIdentity) {
		return nil
	}
	if enabled(attrs, "autoscaling_enabled") || atLeast(attrs, "instance_count", 2) ||
		atLeast(attrs, "replica_count", 2) {
		return nil
	}
	return finding(NoRedundancy, SeverityMedium,
		"Run at least two instances behind a load balancer or enable autoscaling")
}

// CheckMonitoring flags resources nobody is watching.
// Attributes: monitoring_enabled (bool).
func CheckMonitoring(t graph.ResourceType, attrs graph.Attributes) []Finding {
	if !t.IsKnown() {
		return nil
	}
	if enabled(attrs, "monitoring_enabled") {
		return nil
	}
	return finding(NoMonitoring, SeverityLow,
		"Enable metrics and alerting so failures are noticed before users report them")
}
