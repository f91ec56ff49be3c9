package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
)

// Neo4jDriver works against Neo4j 5 and compatible bolt servers.
type Neo4jDriver struct {
	Driver neo4j.DriverWithContext
	log    zerolog.Logger
}

func NewNeo4jDriver(uri, username, password string, log zerolog.Logger) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	l := log.With().Str("component", "graph-driver").Logger()
	l.Info().Str("uri", uri).Msg("connected to graph store")
	return &Neo4jDriver{Driver: driver, log: l}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *Neo4jDriver) BuildIndices(ctx context.Context, embeddingDim int) error {
	queries := []string{
		"CREATE CONSTRAINT entry_id IF NOT EXISTS FOR (n:KnowledgeEntry) REQUIRE n.id IS UNIQUE",
		"CREATE FULLTEXT INDEX entry_text IF NOT EXISTS FOR (n:KnowledgeEntry) ON EACH [n.title, n.content]",
		fmt.Sprintf(
			"CREATE VECTOR INDEX entry_embedding IF NOT EXISTS FOR (n:KnowledgeEntry) ON (n.embedding) "+
				"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			embeddingDim,
		),
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index may already exist on servers without IF NOT EXISTS support.
			d.log.Warn().Err(err).Str("query", q).Msg("failed to create index")
		}
	}
	return nil
}
