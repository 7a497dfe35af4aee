package otp

// SetGenerator replaces the code generator until the returned func is called.
func SetGenerator(f func(length int, alphanumeric bool) (string, error)) (restore func()) {
	prev := generateFunc
	generateFunc = f
	return func() { generateFunc = prev }
}

var HashCode = hashCode
