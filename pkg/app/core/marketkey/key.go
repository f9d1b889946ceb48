// Package marketkey defines the 32-byte identity type shared by the
// market core and the capability interfaces (oracle, custodian) it
// calls out to, so those packages don't need to import the (much
// larger) market package just to name a trader.
package marketkey

import "github.com/ethereum/go-ethereum/common"

// Key is a 32-byte identity: a trader, the quote mint, or an oracle feed
// id. It reuses go-ethereum's 32-byte common.Hash rather than its
// 20-byte common.Address, matching the wire-level 32-byte Key the spec
// calls for.
type Key = common.Hash
