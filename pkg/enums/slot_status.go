package enums

import "fmt"

// SlotStatus is the review state of a single document slot.
type SlotStatus string

const (
	SlotStatusPending  SlotStatus = "pending"
	SlotStatusApproved SlotStatus = "approved"
	SlotStatusRejected SlotStatus = "rejected"
)

var validSlotStatuses = []SlotStatus{
	SlotStatusPending,
	SlotStatusApproved,
	SlotStatusRejected,
}

// String implements fmt.Stringer.
func (s SlotStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SlotStatus.
func (s SlotStatus) IsValid() bool {
	for _, candidate := range validSlotStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSlotStatus converts raw input into SlotStatus.
func ParseSlotStatus(value string) (SlotStatus, error) {
	for _, candidate := range validSlotStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid slot status %q", value)
}
