package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Fingerprint hashes the ordered (id, text) pairs of records. Two record
// lists share a fingerprint only if they hold the same records in the same
// order.
func Fingerprint(records []Record) string {
	h := sha256.New()
	writeField(h, uint64(len(records)))
	for _, r := range records {
		writeString(h, r.ID)
		writeString(h, r.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h hash.Hash, s string) {
	writeField(h, uint64(len(s)))
	h.Write([]byte(s))
}

func writeField(h hash.Hash, n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}
