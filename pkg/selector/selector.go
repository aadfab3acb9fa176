package selector

import (
	"errors"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
)

const (
	// DefaultTimeout is how long the menu waits for a key
	DefaultTimeout = 5 * time.Second
	// DefaultIndex is the entry booted when no valid key is pressed
	DefaultIndex = 0
	// maxSlots is the number of entries reachable with a single digit
	maxSlots = 9
)

// ErrEmptyMenu is returned when there is nothing to select from
var ErrEmptyMenu = errors.New("boot menu is empty")

// Console is the console service the Selector talks to
type Console interface {
	// WaitForKey returns a channel that becomes readable when a keystroke
	// is available
	WaitForKey() <-chan struct{}
	// ReadKey consumes one keystroke
	ReadKey() (rune, error)
	// Printf writes operator-facing text
	Printf(format string, a ...interface{})
	// Flush drops keystrokes that are queued but not read yet
	Flush()
}

// Selector shows the boot menu and waits for the operator's choice
type Selector struct {
	Console Console
	// Clock drives the timeout. If nil, the wall clock is used.
	Clock clock.Clock
	// Timeout is the decision window. If zero, DefaultTimeout is used.
	Timeout time.Duration
}

// Render prints one line per entry, numbered from 1
func Render(c Console, menu *bootconfig.Menu) {
	for idx, entry := range menu.Entries() {
		c.Printf("%d. %s\n", idx+1, entry.Name)
	}
}

// Resolve maps a keystroke to a menu index. Only the digits '1' to '9'
// naming an existing entry select it, anything else selects DefaultIndex.
func Resolve(key rune, count int) int {
	if count > maxSlots {
		count = maxSlots
	}
	if key >= '1' && key <= rune('0'+count) {
		return int(key - '1')
	}
	return DefaultIndex
}

// Select renders the menu and returns the index of the entry to boot. It
// returns after the first keystroke or once the timeout expires, whichever
// comes first. A keystroke already queued when the wait starts wins.
func (s *Selector) Select(menu *bootconfig.Menu) (int, error) {
	count := menu.Len()
	if count == 0 {
		return DefaultIndex, ErrEmptyMenu
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	Render(s.Console, menu)
	s.Console.Printf("Select OS (default in %d seconds): ", int(timeout.Round(time.Second)/time.Second))

	timer := clk.Timer(timeout)
	defer timer.Stop()

	keyReady := s.Console.WaitForKey()
	select {
	case <-keyReady:
		return s.readChoice(count), nil
	default:
	}
	select {
	case <-keyReady:
		return s.readChoice(count), nil
	case <-timer.C:
		log.Printf("No key pressed within %v, booting the default entry", timeout)
		return DefaultIndex, nil
	}
}

func (s *Selector) readChoice(count int) int {
	key, err := s.Console.ReadKey()
	if err != nil {
		log.Printf("Cannot read key: %v", err)
		return DefaultIndex
	}
	return Resolve(key, count)
}
