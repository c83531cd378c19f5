package enums

import "fmt"

// SubmissionStatus maps to the submission_status enum in Postgres.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "pending"
	SubmissionStatusApproved   SubmissionStatus = "approved"
	SubmissionStatusRejected   SubmissionStatus = "rejected"
	SubmissionStatusIncomplete SubmissionStatus = "incomplete"
)

// SubmissionStatusNotSubmitted is an API-only sentinel returned by status
// reads when the caller has no submissions. It is never persisted.
const SubmissionStatusNotSubmitted SubmissionStatus = "not_submitted"

var validSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusApproved,
	SubmissionStatusRejected,
	SubmissionStatusIncomplete,
}

// String implements fmt.Stringer.
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical submission_status enum.
func (s SubmissionStatus) IsValid() bool {
	for _, candidate := range validSubmissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubmissionStatus converts raw input into SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	for _, candidate := range validSubmissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission status %q", value)
}

// SubmissionVariant maps to the submission_variant enum in Postgres.
type SubmissionVariant string

const (
	VariantBusinessVerification SubmissionVariant = "business_verification"
	VariantDriverLicense        SubmissionVariant = "driver_license"
	VariantVehicle              SubmissionVariant = "vehicle"
)

var validSubmissionVariants = []SubmissionVariant{
	VariantBusinessVerification,
	VariantDriverLicense,
	VariantVehicle,
}

// String implements fmt.Stringer.
func (v SubmissionVariant) String() string {
	return string(v)
}

// IsValid reports whether the value matches the canonical submission_variant enum.
func (v SubmissionVariant) IsValid() bool {
	for _, candidate := range validSubmissionVariants {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSubmissionVariant converts raw input into SubmissionVariant.
func ParseSubmissionVariant(value string) (SubmissionVariant, error) {
	for _, candidate := range validSubmissionVariants {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission variant %q", value)
}
