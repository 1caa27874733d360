package core

import "strings"

// AddressesEqual compares two wallet addresses ignoring checksum casing.
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
