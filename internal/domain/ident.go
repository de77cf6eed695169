package domain

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// DeriveMarketID returns the deterministic collision-resistant identifier
// for a market: SHA3-256 over (admin, sideA, sideB, lockTime). Fields are
// length-prefixed so adjacent strings cannot alias, and the lock time is
// encoded as a big-endian Unix timestamp. The same inputs always derive the
// same ID, which makes duplicate creation a store-level conflict.
func DeriveMarketID(admin, sideA, sideB string, lockTime time.Time) string {
	h := sha3.New256()
	for _, field := range []string{admin, sideA, sideB} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(lockTime.Unix()))
	h.Write(ts[:])
	return hex.EncodeToString(h.Sum(nil))
}

// NewBetID returns a fresh bet record identifier. Bet IDs are random rather
// than derived from (bettor, market) because a bettor whose bet was refunded
// may place a new one on the same market; liveness is enforced separately by
// the one-active-bet-per-bettor rule.
func NewBetID() string {
	return uuid.New().String()
}
