package storage

import "fmt"

// Key schema, mirroring the teacher's prefix convention
// (pkg/storage/account_keys.go) generalized from one account's
// sub-records to one market's snapshot and event log:
//
//	snap:<symbol>           → Snapshot
//	evt:<symbol>:<seq>      → EventRecord, seq big-endian for order
const (
	prefixSnapshot = "snap:"
	prefixEvent    = "evt:"
)

func snapshotKey(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixSnapshot, symbol))
}

func eventKey(symbol string, seq uint64) []byte {
	return append([]byte(fmt.Sprintf("%s%s:", prefixEvent, symbol)), seqKey(seq)...)
}

func eventPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixEvent, symbol))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
