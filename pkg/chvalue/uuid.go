package chvalue

import "github.com/google/uuid"

// UUIDFromString parses the canonical dashed textual form into a UUID
// value. It is a construction-time convenience only: on the wire, UUID
// bytes are always written raw with each 64-bit half byte-swapped,
// regardless of how the value was built.
func UUIDFromString(s string) (Value, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Value{}, newValidationError("UUID", err.Error())
	}
	return Value{Kind: KindUUID, UUID: id}, nil
}

// UUIDToString renders v's UUID in canonical dashed form. Panics if v is
// not a KindUUID value; callers that accept arbitrary Values should check
// v.Kind first.
func UUIDToString(v Value) string {
	if v.Kind != KindUUID {
		panic("chvalue: UUIDToString called on non-UUID value")
	}
	return v.UUID.String()
}
