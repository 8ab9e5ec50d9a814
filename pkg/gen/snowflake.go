package gen

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake", fx.Provide(ProvideSnowflakeNode))

// IDGenerator hands out unique, time ordered string IDs.
type IDGenerator interface {
	NewID() string
}

type SnowflakeNode struct {
	node *snowflake.Node
}

func NewSnowflakeNode(nodeID int64) (*SnowflakeNode, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &SnowflakeNode{node: node}, nil
}

// ProvideSnowflakeNode reads the node number from SNOWFLAKE_NODE (default 1)
// so replicas do not collide.
func ProvideSnowflakeNode() (IDGenerator, error) {
	nodeID := int64(1)
	if v, ok := os.LookupEnv("SNOWFLAKE_NODE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = n
	}
	return NewSnowflakeNode(nodeID)
}

func (s *SnowflakeNode) GenerateID() snowflake.ID {
	return s.node.Generate()
}

func (s *SnowflakeNode) NewID() string {
	return s.node.Generate().String()
}
