package utils

// SafeDeref returns the zero value for a nil pointer.
func SafeDeref[T any](ptr *T) T {
	if ptr == nil {
		var zero T
		return zero
	}
	return *ptr
}

