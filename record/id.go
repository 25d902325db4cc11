package record

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// ID returns the document id: uppercase hex SHA-1 of decimal(time) + ip.
// Duplicate lines for the same client at the same second collapse to the
// same id, which is the batcher's and the archiver's dedup key.
func (r *Record) ID() string {
	h := sha1.New()
	h.Write([]byte(strconv.FormatInt(r.Time, 10)))
	h.Write([]byte(r.IP.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}
