package utils

// Empty is an empty struct, which has 0 bytes.
type Empty struct{}
