package compliance

import (
	dbtypes "github.com/kelechianya/complypoint-backend/pkg/db/types"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
)

// Aggregate derives the overall submission status from its slot statuses.
// It is a pure function of the multiset of statuses:
//   - no slots, or pending mixed with at most one decided kind -> pending
//   - all approved -> approved
//   - all rejected -> rejected
//   - at least one approved and one rejected -> incomplete
func Aggregate(slots dbtypes.SlotMap) enums.SubmissionStatus {
	if len(slots) == 0 {
		return enums.SubmissionStatusPending
	}

	var approved, rejected, pending int
	for _, slot := range slots {
		switch slot.Status {
		case enums.SlotStatusApproved:
			approved++
		case enums.SlotStatusRejected:
			rejected++
		default:
			pending++
		}
	}

	switch {
	case approved > 0 && rejected > 0:
		return enums.SubmissionStatusIncomplete
	case pending == 0 && rejected == 0:
		return enums.SubmissionStatusApproved
	case pending == 0 && approved == 0:
		return enums.SubmissionStatusRejected
	default:
		return enums.SubmissionStatusPending
	}
}

// Reconcile checks the admin's requested aggregate against the computed one.
// The aggregate is never independently settable: the caller may only assert a
// value already implied by the per-slot decisions they supplied.
func Reconcile(computed, requested enums.SubmissionStatus) error {
	if requested == computed {
		switch requested {
		case enums.SubmissionStatusApproved,
			enums.SubmissionStatusRejected,
			enums.SubmissionStatusIncomplete:
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "requested aggregate does not match slot decisions").
		WithDetails(map[string]any{
			"requested": requested,
			"computed":  computed,
		})
}
