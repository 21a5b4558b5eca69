package sync

import "fmt"

// ---------------------------------------------------------------------------
// Field ownership
// ---------------------------------------------------------------------------

// Field identifies a campaign attribute subject to the ownership rules
type Field string

const (
	FieldName         Field = "name"
	FieldPhase        Field = "phase"
	FieldSchedule     Field = "schedule"
	FieldTargeting    Field = "targeting"
	FieldBudgetTotal  Field = "budget_total"
	FieldBudgetSpent  Field = "budget_spent"
	FieldImpressions  Field = "impressions"
	FieldClicks       Field = "clicks"
	FieldConversions  Field = "conversions"
	FieldCreativeMeta Field = "creative_metadata"
)

// fieldOwners maps each synchronized field to the single platform that is
// authoritative for it. Intent belongs to the campaign owner; delivery
// facts belong to the execution platform. The table is fixed and has no
// merge rules: a push never transmits facts, a pull never overwrites intent.
var fieldOwners = map[Field]PlatformCode{
	FieldName:         PlatformKargo,
	FieldPhase:        PlatformKargo,
	FieldSchedule:     PlatformKargo,
	FieldTargeting:    PlatformKargo,
	FieldBudgetTotal:  PlatformKargo,
	FieldCreativeMeta: PlatformKargo,
	FieldBudgetSpent:  PlatformAmazonDSP,
	FieldImpressions:  PlatformAmazonDSP,
	FieldClicks:       PlatformAmazonDSP,
	FieldConversions:  PlatformAmazonDSP,
}

// Owner returns the platform authoritative for the field
func Owner(f Field) (PlatformCode, bool) {
	owner, ok := fieldOwners[f]
	return owner, ok
}

// IsIntent reports whether the field carries campaign intent, meaning a
// push may write it to the execution platform
func IsIntent(f Field) bool {
	return fieldOwners[f] == PlatformKargo
}

// IsDeliveryFact reports whether the field carries delivery facts, meaning
// a pull may write it locally
func IsDeliveryFact(f Field) bool {
	return fieldOwners[f] == PlatformAmazonDSP
}

// OwnedFields returns all fields owned by the given platform
func OwnedFields(platform PlatformCode) []Field {
	fields := make([]Field, 0, len(fieldOwners))
	for f, owner := range fieldOwners {
		if owner == platform {
			fields = append(fields, f)
		}
	}
	return fields
}

// itemFields maps each item kind to the fields it moves across the wire
var itemFields = map[ItemKind][]Field{
	ItemCampaign:    {FieldName, FieldPhase, FieldSchedule},
	ItemCreative:    {FieldCreativeMeta},
	ItemTargeting:   {FieldTargeting},
	ItemBudget:      {FieldBudgetTotal},
	ItemPerformance: {FieldBudgetSpent, FieldImpressions, FieldClicks, FieldConversions},
}

// ItemFields returns the fields an item of the given kind transfers
func ItemFields(kind ItemKind) []Field {
	return itemFields[kind]
}

// AuthorizePush checks the item kind against the ownership table: every
// field it moves must be campaign intent, since a push never transmits
// delivery facts.
func AuthorizePush(kind ItemKind) error {
	fields, ok := itemFields[kind]
	if !ok {
		return Invalid("item", fmt.Sprintf("item kind %q moves no known fields", kind))
	}
	for _, f := range fields {
		if !IsIntent(f) {
			return Invalid("item", fmt.Sprintf("field %q is owned by the execution platform and cannot be pushed", f))
		}
	}
	return nil
}

// AuthorizePullWrite checks the item kind against the ownership table:
// every field it writes locally must be a delivery fact, since a pull never
// overwrites intent.
func AuthorizePullWrite(kind ItemKind) error {
	fields, ok := itemFields[kind]
	if !ok {
		return Invalid("item", fmt.Sprintf("item kind %q moves no known fields", kind))
	}
	for _, f := range fields {
		if !IsDeliveryFact(f) {
			return Invalid("item", fmt.Sprintf("field %q is campaign intent and cannot be written by a pull", f))
		}
	}
	return nil
}
