package recovery

import (
	"errors"
	"log"
)

// PermissiveRecoverer reports the failure and gives control back to the
// caller, which is expected to exit
type PermissiveRecoverer struct {
	Debug bool
}

// Recover logs message and returns it as an error
func (pr PermissiveRecoverer) Recover(message string) error {
	if message == "" {
		return nil
	}
	if pr.Debug {
		log.Printf("Recovery: %s", message)
	}
	return errors.New(message)
}
