package score

import "sync"

// Accuracy counts typing attempts and how many were correct.
type Accuracy struct {
	mu      sync.Mutex
	total   int
	correct int
}

// Register records one attempt.
func (a *Accuracy) Register(correct bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	if correct {
		a.correct++
	}
}

// Counts returns the total and correct attempt counts.
func (a *Accuracy) Counts() (total, correct int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total, a.correct
}

// Ratio returns correct/total, or 0 before any attempt.
//
// Postcondition: Result is in [0, 1].
func (a *Accuracy) Ratio() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.total == 0 {
		return 0
	}
	return float64(a.correct) / float64(a.total)
}

// Restore replaces the counters.
//
// Precondition: 0 <= correct <= total.
func (a *Accuracy) Restore(total, correct int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total, a.correct = total, min(correct, total)
}
