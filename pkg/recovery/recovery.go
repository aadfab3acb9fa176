package recovery

// Recoverer offers the ability to recover
// from a failed boot
type Recoverer interface {
	Recover(message string) error
}
