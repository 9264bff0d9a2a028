// Package checksum provides the incremental CRC32 used by protocol codecs
// to protect control packets.
package checksum

import "hash/crc32"

// table is the reflected IEEE 802.3 table (polynomial 0xEDB88320),
// built once per process.
var table = crc32.MakeTable(crc32.IEEE)

// CRC32 is a running checksum.  The zero value is ready to use and
// represents an empty input.  A CRC32 is scoped to one computation and
// is not safe for concurrent use.
type CRC32 struct {
	sum uint32
}

// New returns an empty accumulator.
func New() *CRC32 { return &CRC32{} }

// Update folds p into the accumulator.  Successive calls continue the
// same computation.
func (c *CRC32) Update(p []byte) {
	c.sum = crc32.Update(c.sum, table, p)
}

// UpdateRange folds buf[offset:offset+length] into the accumulator.
// Out-of-range requests are clamped to the buffer.
func (c *CRC32) UpdateRange(buf []byte, offset, length int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(buf) {
		return
	}
	end := offset + length
	if length < 0 || end > len(buf) {
		end = len(buf)
	}
	c.Update(buf[offset:end])
}

// Value returns the finalised (complemented) checksum of everything
// folded in so far.
func (c *CRC32) Value() uint32 { return c.sum }

// Reset discards all accumulated input.
func (c *CRC32) Reset() { c.sum = 0 }

// Sum is a convenience for a one-shot checksum of p.
func Sum(p []byte) uint32 { return crc32.Checksum(p, table) }
