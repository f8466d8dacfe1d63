package models

import "time"

// DedupeRecord remembers the last accepted change for a dedup key.
type DedupeRecord struct {
	Key                 string     `json:"key"`
	ProcessedAt         time.Time  `json:"processed_at"`
	LastChangeTimestamp *time.Time `json:"last_change_timestamp,omitempty"`
	ContentSignature    string     `json:"content_signature,omitempty"`
}

// Same reports whether two records describe the same accepted change.
func (r *DedupeRecord) Same(other *DedupeRecord) bool {
	if r == nil || other == nil {
		return r == other
	}

	if !r.ProcessedAt.Equal(other.ProcessedAt) || r.ContentSignature != other.ContentSignature {
		return false
	}

	if r.LastChangeTimestamp == nil || other.LastChangeTimestamp == nil {
		return r.LastChangeTimestamp == other.LastChangeTimestamp
	}

	return r.LastChangeTimestamp.Equal(*other.LastChangeTimestamp)
}
