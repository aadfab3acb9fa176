// Package bootflow runs the boot selector from configuration to handoff.
//
// The run is a state machine:
//
//	LoadingConfig -> AwaitingSelection -> Invoking -> HandedOff
//	                        ^                |
//	                        +---- Failed <---+
//
// Configuration errors end the run in Failed. A failed handoff goes back
// to the menu while attempts remain.
package bootflow

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
	"github.com/izhank216/MultiEFI/pkg/booter"
	"github.com/izhank216/MultiEFI/pkg/selector"
)

// State of a run
type State int

// States of a run
const (
	StateLoadingConfig State = iota
	StateAwaitingSelection
	StateInvoking
	StateFailed
	StateHandedOff
)

func (s State) String() string {
	switch s {
	case StateLoadingConfig:
		return "Loading-Config"
	case StateAwaitingSelection:
		return "Awaiting-Selection"
	case StateInvoking:
		return "Invoking"
	case StateFailed:
		return "Failed"
	case StateHandedOff:
		return "Handed-Off"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Exit codes of a run
const (
	ExitHandedOff     = 0
	ExitConfigError   = 1
	ExitInvokeFailure = 2
)

// DefaultMaxAttempts is the number of handoffs tried before giving up
const DefaultMaxAttempts = 3

// ErrConfigEmpty is returned when the configuration has no valid entry
var ErrConfigEmpty = errors.New("configuration empty")

// Platform holds the services the run uses
type Platform struct {
	// Volume is the boot volume the configuration is read from
	Volume fs.FS
	// Console shows the menu and reads the operator's key
	Console selector.Console
	// Booter hands off to the chosen entry
	Booter booter.Booter
	// Clock drives the menu timeout. Defaults to the wall clock.
	Clock clock.Clock
}

// Config tunes a run
type Config struct {
	// ConfigPath overrides the configuration file path on the volume
	ConfigPath string
	// Timeout overrides selector.DefaultTimeout
	Timeout time.Duration
	// MaxAttempts is the number of handoffs tried before the run fails.
	// 1 never goes back to the menu. Defaults to DefaultMaxAttempts.
	MaxAttempts int
	// MeasureConfig is called with the raw configuration text
	MeasureConfig func(data []byte, info string)
}

// Result describes how a run ended
type Result struct {
	// State is StateHandedOff or StateFailed
	State State
	// Trace lists every state the run went through, in order
	Trace []State
	// Index and Entry are the last selected entry
	Index int
	Entry bootconfig.BootEntry
	// Attempts is the number of handoffs tried
	Attempts int
	// Err is nil after a handoff. Otherwise it wraps
	// bootconfig.ErrConfigMissing or ErrConfigEmpty, or aggregates the
	// failure of every attempt.
	Err error
}

// ExitCode maps the result to the process exit status
func (r *Result) ExitCode() int {
	switch {
	case r.State == StateHandedOff:
		return ExitHandedOff
	case errors.Is(r.Err, bootconfig.ErrConfigMissing), errors.Is(r.Err, ErrConfigEmpty):
		return ExitConfigError
	default:
		return ExitInvokeFailure
	}
}

// Status returns the platform status of the last failed attempt
func (r *Result) Status() booter.Status {
	var merr *multierror.Error
	if errors.As(r.Err, &merr) && len(merr.Errors) > 0 {
		return booter.StatusOf(merr.Errors[len(merr.Errors)-1])
	}
	return booter.StatusOf(r.Err)
}

type run struct {
	p      Platform
	c      Config
	result *Result
	menu   *bootconfig.Menu
	errs   *multierror.Error
}

// Run loads the configuration, shows the menu and hands off to the chosen
// entry. On a successful handoff it normally does not return.
func Run(p Platform, c Config) *Result {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	r := &run{p: p, c: c, result: &Result{}}
	state := StateLoadingConfig
	for {
		r.result.Trace = append(r.result.Trace, state)
		next, done := r.step(state)
		if done {
			r.result.State = state
			if r.errs != nil && r.result.Err == nil {
				r.result.Err = r.errs.ErrorOrNil()
			}
			return r.result
		}
		log.Printf("State %v -> %v", state, next)
		state = next
	}
}

func (r *run) step(state State) (State, bool) {
	switch state {
	case StateLoadingConfig:
		return r.loadConfig()
	case StateAwaitingSelection:
		return r.awaitSelection()
	case StateInvoking:
		return r.invoke()
	case StateFailed:
		return r.failed()
	default:
		// StateHandedOff
		return state, true
	}
}

func (r *run) loadConfig() (State, bool) {
	loader := bootconfig.Loader{
		Volume:  r.p.Volume,
		Path:    r.c.ConfigPath,
		Measure: r.c.MeasureConfig,
	}
	menu, err := loader.Load()
	if err == nil && menu.Len() == 0 {
		err = ErrConfigEmpty
	}
	if err != nil {
		log.Printf("Cannot load configuration: %v", err)
		r.p.Console.Printf("Config not found or empty!\n")
		r.result.Err = err
		return StateFailed, false
	}
	r.menu = menu
	return StateAwaitingSelection, false
}

func (r *run) awaitSelection() (State, bool) {
	s := selector.Selector{
		Console: r.p.Console,
		Clock:   r.p.Clock,
		Timeout: r.c.Timeout,
	}
	idx, err := s.Select(r.menu)
	if err != nil {
		// not reachable with a loaded menu
		r.result.Err = err
		return StateFailed, false
	}
	r.result.Index = idx
	r.result.Entry = r.menu.Entry(idx)
	r.p.Console.Printf("\nBooting %s...\n", r.result.Entry.Name)
	return StateInvoking, false
}

func (r *run) invoke() (State, bool) {
	r.result.Attempts++
	err := r.p.Booter.Boot(r.result.Entry)
	if err == nil {
		return StateHandedOff, false
	}
	r.p.Console.Printf("Failed to boot %s: %v\n", r.result.Entry.Name, err)
	r.errs = multierror.Append(r.errs, err)
	return StateFailed, false
}

func (r *run) failed() (State, bool) {
	if r.menu == nil || r.result.Err != nil {
		// configuration errors are final
		return StateFailed, true
	}
	if r.result.Attempts >= r.c.MaxAttempts {
		r.p.Console.Printf("Giving up after %d attempts\n", r.result.Attempts)
		return StateFailed, true
	}
	r.p.Console.Printf("Returning to menu (attempt %d of %d failed)\n", r.result.Attempts, r.c.MaxAttempts)
	// keys typed during the failed attempt must not answer the new menu
	r.p.Console.Flush()
	return StateAwaitingSelection, false
}
