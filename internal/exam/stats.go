package exam

import "strconv"

// StatsKey is the redis hash holding per-test score aggregates (fields
// "count" and "sum"). The worker writes it, the API reads it.
func StatsKey(testID int64) string {
	return "examgate:stats:test:" + strconv.FormatInt(testID, 10)
}
