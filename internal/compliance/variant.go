package compliance

import (
	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// SlotSpec names one document slot of a variant and whether the owner must
// supply it at creation time.
type SlotSpec struct {
	Name     string
	Required bool
}

// VariantDescriptor fixes the document slots and the unique business key
// field for one submission variant. The review flow is identical across
// variants; only these descriptors differ.
type VariantDescriptor struct {
	Variant        enums.SubmissionVariant
	UniqueKeyField string
	Slots          []SlotSpec
}

var descriptors = map[enums.SubmissionVariant]VariantDescriptor{
	enums.VariantBusinessVerification: {
		Variant:        enums.VariantBusinessVerification,
		UniqueKeyField: "rcNumber",
		Slots: []SlotSpec{
			{Name: "cacDocumentUrl", Required: true},
			{Name: "proofOfAddressUrl", Required: true},
			{Name: "tinDocumentUrl", Required: true},
			{Name: "logoUrl", Required: false},
		},
	},
	enums.VariantDriverLicense: {
		Variant:        enums.VariantDriverLicense,
		UniqueKeyField: "licenseNumber",
		Slots: []SlotSpec{
			{Name: "documentUrl", Required: true},
			{Name: "documentBackUrl", Required: true},
		},
	},
	enums.VariantVehicle: {
		Variant:        enums.VariantVehicle,
		UniqueKeyField: "plateNumber",
		Slots: []SlotSpec{
			{Name: "driverLicenseUrl", Required: true},
			{Name: "vehicleLicenseUrl", Required: true},
			{Name: "insuranceUrl", Required: true},
		},
	},
}

// DescriptorFor returns the descriptor for a variant.
func DescriptorFor(variant enums.SubmissionVariant) (VariantDescriptor, bool) {
	d, ok := descriptors[variant]
	return d, ok
}

// HasSlot reports whether name is a recognized slot for this variant.
func (d VariantDescriptor) HasSlot(name string) bool {
	for _, slot := range d.Slots {
		if slot.Name == name {
			return true
		}
	}
	return false
}

// UnknownSlots returns the provided slot names that the variant does not define.
func (d VariantDescriptor) UnknownSlots(urls map[string]string) []string {
	var unknown []string
	for name := range urls {
		if !d.HasSlot(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// MissingRequired returns the required slot names absent from urls.
func (d VariantDescriptor) MissingRequired(urls map[string]string) []string {
	var missing []string
	for _, slot := range d.Slots {
		if !slot.Required {
			continue
		}
		if urls[slot.Name] == "" {
			missing = append(missing, slot.Name)
		}
	}
	return missing
}
