package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Election is the subset of an upstream election record the watcher tracks.
type Election struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ElectionDay   string `json:"election_day"`
	OCDDivisionID string `json:"ocd_division_id"`
}

// Fingerprint identifies the announced state of an election. It changes when
// the service moves the date, renames the election or reassigns its division.
func (e Election) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{e.ElectionDay, e.Name, e.OCDDivisionID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
