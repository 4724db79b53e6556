package sfuworker

// H is a loosely typed JSON object, used for AppData and other
// caller-supplied opaque payloads that round-trip through the wire
// without the engine needing to know their shape.
type H map[string]interface{}

// Bool returns a pointer to b, for populating the *bool fields option
// structs use to distinguish "not set" from "explicitly false".
func Bool(b bool) *bool {
	return &b
}

// BoolVal reads a *bool option field, treating nil as false.
func BoolVal(b *bool) bool {
	return b != nil && *b
}
