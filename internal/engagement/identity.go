package engagement

import (
	"crypto/md5"
	"encoding/hex"
)

// EndpointID derives the endpoint store key for an email address: the hex
// MD5 digest of the exact bytes given. It is an identifier, not a
// credential. Callers trim and validate the address before hashing.
func EndpointID(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}
