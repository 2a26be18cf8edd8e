// Package helpers provides common utility functions used across the project.
package helpers

// PtrOf returns a pointer to the given value.
//
// Useful for the optional pointer fields on provider configs.
//
// Example:
//
//	config.Temperature = helpers.PtrOf(float32(0.2))
//	config.MaxTokens = helpers.PtrOf(2000)
func PtrOf[T any](t T) *T { return &t }
