// Package xid mints prefixed identifiers for stored records. An ID embeds
// the creation timestamp, so IDs for the same prefix sort roughly by age.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>-<unix nanos>-<16 hex chars>". If the random source
// is unavailable the suffix is dropped and the timestamp alone has to do.
func New(prefix string) string {
	now := time.Now().UnixNano()
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now, hex.EncodeToString(buf[:]))
}
