package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver abstracts the cypher store behind the graph search backend so
// tests can run against a recorded driver.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BuildIndices(ctx context.Context, embeddingDim int) error
	Close(ctx context.Context) error
}
