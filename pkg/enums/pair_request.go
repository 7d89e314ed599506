package enums

import "fmt"

// PairRequestStatus maps to the pair_request_status enum in Postgres.
type PairRequestStatus string

const (
	PairRequestPending  PairRequestStatus = "pending"
	PairRequestAccepted PairRequestStatus = "accepted"
	PairRequestRejected PairRequestStatus = "rejected"
)

var validPairRequestStatuses = []PairRequestStatus{
	PairRequestPending,
	PairRequestAccepted,
	PairRequestRejected,
}

// IsValid reports whether the value matches the canonical pair_request_status enum.
func (s PairRequestStatus) IsValid() bool {
	for _, candidate := range validPairRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s PairRequestStatus) IsTerminal() bool {
	return s == PairRequestAccepted || s == PairRequestRejected
}

// ParsePairRequestStatus converts raw input into PairRequestStatus.
func ParsePairRequestStatus(value string) (PairRequestStatus, error) {
	for _, candidate := range validPairRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pair request status %q", value)
}

// ParsePairDecision accepts only the two terminal statuses an owner may choose.
func ParsePairDecision(value string) (PairRequestStatus, error) {
	status, err := ParsePairRequestStatus(value)
	if err != nil || !status.IsTerminal() {
		return "", fmt.Errorf("invalid pair decision %q", value)
	}
	return status, nil
}
