// Package dice provides the randomness abstraction used for random target
// selection and random skill choice.
package dice

// Source is the randomness provider for combat choices.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Pick returns a uniformly chosen index into a collection of length n,
// or -1 when n == 0.
//
// Postcondition: Returns -1 iff n <= 0; otherwise a value in [0, n).
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	if n == 1 {
		return 0
	}
	return src.Intn(n)
}
