package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// FalkorConfig holds connection settings for the FalkorDB store.
type FalkorConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"gte=0,lte=65535"`
	Password     string        `yaml:"password"`
	GraphName    string        `yaml:"graph_name"`
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size" validate:"gte=0"`
	// QueryTimeout bounds each Cypher query. A tighter context deadline wins.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DefaultFalkorConfig returns default connection settings.
func DefaultFalkorConfig() FalkorConfig {
	return FalkorConfig{
		Host:         "localhost",
		Port:         6379,
		GraphName:    "riskgraph",
		MaxRetries:   3,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		QueryTimeout: 10 * time.Second,
	}
}

// FalkorStore is a Store backed by a FalkorDB graph. Resources are
// (:Resource) nodes; dependencies are [:DEPENDS_ON] and redundancy links are
// [:REDUNDANT_WITH] relationships.
type FalkorStore struct {
	config FalkorConfig
	logger *logging.Logger
	db     *falkordb.FalkorDB
	graph  *falkordb.Graph
}

// NewFalkorStore creates an unconnected store.
func NewFalkorStore(config FalkorConfig) *FalkorStore {
	return &FalkorStore{
		config: config,
		logger: logging.GetLogger("graph.falkordb"),
	}
}

// Connect opens the connection pool and selects the graph.
func (s *FalkorStore) Connect(ctx context.Context) error {
	s.logger.Info("Connecting to FalkorDB at %s:%d (graph: %s)", s.config.Host, s.config.Port, s.config.GraphName)

	// falkordb.ConnectionOption is an alias for redis.Options
	db, err := falkordb.FalkorDBNew(&falkordb.ConnectionOption{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Password:     s.config.Password,
		DialTimeout:  s.config.DialTimeout,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		PoolSize:     s.config.PoolSize,
		MaxRetries:   s.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create FalkorDB client: %w", err)
	}
	s.db = db
	s.graph = db.SelectGraph(s.config.GraphName)

	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach FalkorDB: %w", err)
	}
	s.logger.Info("Connected to FalkorDB")
	return nil
}

// Close releases the connection pool.
func (s *FalkorStore) Close() error {
	if s.db != nil && s.db.Conn != nil {
		return s.db.Conn.Close()
	}
	return nil
}

// Start connects and creates the indexes. It implements lifecycle.Component.
func (s *FalkorStore) Start(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.InitializeSchema(ctx)
}

// Stop implements lifecycle.Component.
func (s *FalkorStore) Stop(ctx context.Context) error {
	return s.Close()
}

// Name implements lifecycle.Component.
func (s *FalkorStore) Name() string {
	return "FalkorDB Store"
}

// Ping runs a trivial query.
func (s *FalkorStore) Ping(ctx context.Context) error {
	_, err := s.query(ctx, "RETURN 1", nil)
	return err
}

// InitializeSchema creates the id and type indexes. Existing indexes are not an error.
func (s *FalkorStore) InitializeSchema(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX FOR (n:Resource) ON (n.id)",
		"CREATE INDEX FOR (n:Resource) ON (n.type)",
	}
	for _, q := range indexes {
		if _, err := s.query(ctx, q, nil); err != nil {
			s.logger.Debug("Index creation skipped (may already exist): %v", err)
		}
	}
	return nil
}

// GetResource implements Store.
func (s *FalkorStore) GetResource(ctx context.Context, id string) (*Resource, error) {
	rows, err := s.query(ctx, "MATCH (r:Resource {id: $id}) RETURN r", map[string]interface{}{"id": id})
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, riskerr.NotFound(id)
	}
	props, err := ParseNodeFromResult(rows[0][0])
	if err != nil {
		return nil, riskerr.Upstream(err, "failed to parse resource %q", id)
	}
	r, err := ResourceFromProperties(props)
	if err != nil {
		return nil, riskerr.Upstream(err, "failed to decode resource %q", id)
	}
	return &r, nil
}

// OutgoingEdges implements Store.
func (s *FalkorStore) OutgoingEdges(ctx context.Context, id string) ([]Edge, error) {
	return s.edges(ctx, id,
		"MATCH (a:Resource {id: $id})-[e]->(b:Resource) RETURN e, a.id, b.id ORDER BY b.id")
}

// IncomingEdges implements Store.
func (s *FalkorStore) IncomingEdges(ctx context.Context, id string) ([]Edge, error) {
	return s.edges(ctx, id,
		"MATCH (a:Resource)-[e]->(b:Resource {id: $id}) RETURN e, a.id, b.id ORDER BY a.id")
}

func (s *FalkorStore) edges(ctx context.Context, id, cypher string) ([]Edge, error) {
	if _, err := s.GetResource(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, cypher, map[string]interface{}{"id": id})
	if err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}
	edges := make([]Edge, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		relation, props, err := ParseEdgeFromResult(row[0])
		if err != nil {
			return nil, riskerr.Upstream(err, "failed to parse edge of %q", id)
		}
		source, _ := row[1].(string)
		target, _ := row[2].(string)
		edges = append(edges, EdgeFromProperties(relation, source, target, props))
	}
	return edges, nil
}

// ListResources implements Store.
func (s *FalkorStore) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	var where []string
	params := map[string]interface{}{}
	if filter.Type != "" {
		where = append(where, "r.type = $type")
		params["type"] = string(filter.Type)
	}
	if filter.Provider != "" {
		where = append(where, "r.provider = $provider")
		params["provider"] = filter.Provider
	}
	if filter.Region != "" {
		where = append(where, "r.region = $region")
		params["region"] = filter.Region
	}

	var b strings.Builder
	b.WriteString("MATCH (r:Resource)")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" RETURN r ORDER BY r.id")
	if filter.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", filter.Limit)
	}

	rows, err := s.query(ctx, b.String(), params)
	if err != nil {
		return nil, riskerr.Classify(err, "list resources")
	}
	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		props, err := ParseNodeFromResult(row[0])
		if err != nil {
			return nil, riskerr.Upstream(err, "failed to parse resource row")
		}
		r, err := ResourceFromProperties(props)
		if err != nil {
			return nil, riskerr.Upstream(err, "failed to decode resource row")
		}
		out = append(out, r)
	}
	return out, nil
}

// Import writes a snapshot into the graph with MERGE semantics. It is the
// loader behind `riskgraph import`; the engine never writes.
func (s *FalkorStore) Import(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	for _, r := range snap.Resources {
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal attributes of %q: %w", r.ID, err)
		}
		_, err = s.query(ctx,
			"MERGE (r:Resource {id: $id}) SET r.type = $type, r.name = $name, r.provider = $provider, "+
				"r.region = $region, r.criticality = $criticality, r.attributes = $attributes",
			map[string]interface{}{
				"id":          r.ID,
				"type":        string(r.Type),
				"name":        r.Name,
				"provider":    r.Provider,
				"region":      r.Region,
				"criticality": string(r.Criticality),
				"attributes":  string(attrs),
			})
		if err != nil {
			return fmt.Errorf("failed to upsert resource %q: %w", r.ID, err)
		}
	}

	for _, e := range snap.Edges {
		// Relationship types cannot be parameterized; EffectiveKind is validated above.
		cypher := fmt.Sprintf(
			"MATCH (a:Resource {id: $source}), (b:Resource {id: $target}) "+
				"MERGE (a)-[e:%s]->(b) SET e.category = $category, e.type = $type, "+
				"e.strength = $strength, e.discovery_method = $method",
			e.EffectiveKind())
		_, err := s.query(ctx, cypher, map[string]interface{}{
			"source":   e.SourceID,
			"target":   e.TargetID,
			"category": string(e.Category),
			"type":     string(e.Type),
			"strength": e.Strength,
			"method":   e.DiscoveryMethod,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert edge %s->%s: %w", e.SourceID, e.TargetID, err)
		}
	}

	s.logger.InfoWithFields("Snapshot imported",
		logging.Field("resources", len(snap.Resources)),
		logging.Field("edges", len(snap.Edges)),
		logging.Field("graph", s.config.GraphName))
	return nil
}

// DeleteGraph drops the whole graph, indexes included.
func (s *FalkorStore) DeleteGraph() error {
	if s.graph == nil {
		return fmt.Errorf("client not connected")
	}
	if err := s.graph.Delete(); err != nil && !strings.Contains(err.Error(), "empty key") {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	s.graph = s.db.SelectGraph(s.config.GraphName)
	return nil
}

// query runs cypher and materializes all rows. The per-query timeout is the
// smaller of QueryTimeout and the time left on ctx.
func (s *FalkorStore) query(ctx context.Context, cypher string, params map[string]interface{}) ([][]interface{}, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("client not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := s.config.QueryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	var options *falkordb.QueryOptions
	if timeout > 0 {
		ms := int(timeout.Milliseconds())
		if ms < 1 {
			ms = 1
		}
		options = falkordb.NewQueryOptions().SetTimeout(ms)
	}

	start := time.Now()
	result, err := s.graph.Query(cypher, params, options)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	var rows [][]interface{}
	for result.Next() {
		rows = append(rows, result.Record().Values())
	}
	s.logger.Debug("Query took %v, %d rows: %s", time.Since(start), len(rows), cypher)
	return rows, nil
}
