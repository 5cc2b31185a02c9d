package pointer

// String returns a pointer to the provided string value
func String(value string) *string {
	return &value
}

// Uint8 returns a pointer to the provided uint8 value
func Uint8(value uint8) *uint8 {
	return &value
}

// Uint64 returns a pointer to the provided uint64 value
func Uint64(value uint64) *uint64 {
	return &value
}

// Uint64OrDefault returns the pointed to value if not nil, otherwise the
// default value
func Uint64OrDefault(value *uint64, defaultValue uint64) uint64 {
	if value != nil {
		return *value
	}
	return defaultValue
}
