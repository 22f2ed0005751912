// Package shard computes partition keys for the DynamoDB tool-usage table.
package shard

import (
	"fmt"
	"hash/fnv"
	"time"
)

// DayLayout is the date format embedded in audit partition keys.
const DayLayout = "2006-01-02"

// AuditPK returns the partition key for a tool-usage record:
// "<tool>#<day>#<shard>". With numShards<=1 every record of a tool and day
// lands in shard "00". Otherwise records are spread by a hash of actor (the
// user or session id), so one busy tool doesn't pin a single partition.
func AuditPK(tool string, day time.Time, actor string, numShards int) string {
	prefix := fmt.Sprintf("%s#%s", tool, day.UTC().Format(DayLayout))
	if numShards <= 1 {
		return prefix + "#00"
	}
	h := fnv.New32a()
	h.Write([]byte(actor))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", prefix, shard)
}

// AuditSK returns the sort key for a record: the RFC 3339 timestamp with
// millisecond precision followed by id, so records sort by time and never
// collide.
func AuditSK(ts time.Time, id string) string {
	return ts.UTC().Format("2006-01-02T15:04:05.000Z07:00") + "#" + id
}

// Shards lists every partition key a tool uses on day, for queries that
// need to fan out across shards.
func Shards(tool string, day time.Time, numShards int) []string {
	prefix := fmt.Sprintf("%s#%s", tool, day.UTC().Format(DayLayout))
	if numShards <= 1 {
		return []string{prefix + "#00"}
	}
	keys := make([]string, numShards)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s#%02x", prefix, i)
	}
	return keys
}
