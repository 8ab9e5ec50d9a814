package testutil

import (
	"testing"

	"endurancy-platform/pkg/gen"
)

func NewIDs(t *testing.T) gen.IDGenerator {
	t.Helper()
	node, err := gen.NewSnowflakeNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return node
}
