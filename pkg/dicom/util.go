package dicom

import (
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Implementation identity written into the file meta group
const (
	ImplementationClassUID    = "2.25.229451600072090404564544894284998027172"
	ImplementationVersionName = "RTSS_GO"
)

// GenerateUID generates a DICOM unique identifier from a random UUID.
// With an empty prefix the UUID derived "2.25." root is used (PS3.5 B.2),
// otherwise the UUID's decimal form is appended to prefix and truncated to 64 chars.
func GenerateUID(prefix string) string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	if prefix == "" {
		return "2.25." + n.String()
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	uid := prefix + n.String()
	if len(uid) > 64 {
		uid = strings.TrimRight(uid[:64], ".")
	}
	return uid
}
