package wire

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32C (Castagnoli) checksum RFC 3720 mandates for
// header and data digests.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// Crc32cHasher is a streaming CRC32C accumulator for digest computation
// across a header and its AHS, or across a payload split into multiple
// writes (e.g. scatter-gathered DataOUT segments).
type Crc32cHasher struct {
	sum uint32
}

// NewCrc32cHasher returns a fresh streaming hasher.
func NewCrc32cHasher() *Crc32cHasher {
	return &Crc32cHasher{}
}

// Write feeds additional bytes into the running checksum. It never returns
// an error, matching hash.Hash32's contract.
func (h *Crc32cHasher) Write(p []byte) (int, error) {
	h.sum = crc32.Update(h.sum, castagnoliTable, p)
	return len(p), nil
}

// Sum32 returns the checksum accumulated so far.
func (h *Crc32cHasher) Sum32() uint32 {
	return h.sum
}

// Reset clears the accumulator for reuse across PDUs.
func (h *Crc32cHasher) Reset() {
	h.sum = 0
}
