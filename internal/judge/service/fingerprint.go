package service

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// submissionID fingerprints a submission so that identical source judged
// against the same challenge always yields the same id.
func submissionID(challengeID, source string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(challengeID))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}
