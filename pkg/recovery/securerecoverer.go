package recovery

import (
	"log"
	"time"
)

const debugTimeout time.Duration = 10

// SecureRecoverer properties
// Reboot: does a reboot if true, powers off otherwise
// Sync: sync file descriptors and devices
// Debug: print the message and wait before power cycling
type SecureRecoverer struct {
	Reboot bool
	Sync   bool
	Debug  bool
}

// replaced in tests
var (
	sleep   = time.Sleep
	doSync  = syncAll
	doPower = powerCycle
)

// Recover by reboot or poweroff without or with sync
func (sr SecureRecoverer) Recover(message string) error {
	if sr.Sync {
		if err := doSync(); err != nil {
			return err
		}
	}

	if message != "" {
		log.Printf("%s", message)
	}
	if sr.Debug {
		sleep(debugTimeout * time.Second)
	}

	return doPower(sr.Reboot)
}
