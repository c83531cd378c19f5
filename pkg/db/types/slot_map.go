package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// DocumentSlot is one reviewable document inside a submission's slots column.
// RejectionReason is set iff Status is rejected.
type DocumentSlot struct {
	URL             string           `json:"url"`
	Status          enums.SlotStatus `json:"status"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
}

// SlotMap is the jsonb slots column keyed by slot name.
type SlotMap map[string]DocumentSlot

func (m *SlotMap) Scan(src any) error {
	if src == nil {
		*m = SlotMap{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return m.parseFromBytes(v)
	case string:
		return m.parseFromBytes([]byte(v))
	default:
		return fmt.Errorf("SlotMap: unsupported Scan type %T", src)
	}
}

func (m SlotMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("SlotMap: marshal: %w", err)
	}
	return encoded, nil
}

func (m *SlotMap) parseFromBytes(data []byte) error {
	if len(data) == 0 {
		*m = SlotMap{}
		return nil
	}
	out := SlotMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("SlotMap: unmarshal: %w", err)
	}
	*m = out
	return nil
}

// Statuses returns the multiset of slot statuses in the map.
func (m SlotMap) Statuses() []enums.SlotStatus {
	out := make([]enums.SlotStatus, 0, len(m))
	for _, slot := range m {
		out = append(out, slot.Status)
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (m SlotMap) Clone() SlotMap {
	out := make(SlotMap, len(m))
	for name, slot := range m {
		if slot.RejectionReason != nil {
			reason := *slot.RejectionReason
			slot.RejectionReason = &reason
		}
		out[name] = slot
	}
	return out
}
