package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string. Used for account ids
// and token jti values, which are random and sortable by creation time.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeID generates a snowflake ID string using a node ID from the
// SNOWFLAKE_NODE environment variable (node 1 when unset or invalid). If node
// initialization fails it falls back to a KSUID so a unique ID is always
// returned.
func NewSnowflakeID() string {
	nodeID := int64(1)
	if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
		if n, err := strconv.ParseInt(env, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
