package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// stateFingerprint is the subset of the project that feeds the state hash.
// Derived values, timestamps and the cached optimization result are excluded
// so the hash only moves when the plan itself moves.
type stateFingerprint struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Phases      []Phase  `json:"phases"`
	Team        []string `json:"team"`
	Metadata    Metadata `json:"metadata"`
}

// StateHash returns a hex SHA-256 digest of the project's structural state.
func StateHash(p *Project) string {
	fp := stateFingerprint{
		Title:       p.Title,
		Description: p.Description,
		Phases:      p.Phases,
		Team:        p.Team,
		Metadata:    p.Metadata,
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
