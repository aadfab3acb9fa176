package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
	"github.com/izhank216/MultiEFI/pkg/booter"
	"github.com/izhank216/MultiEFI/pkg/bootflow"
	"github.com/izhank216/MultiEFI/pkg/console"
	"github.com/izhank216/MultiEFI/pkg/loader"
	"github.com/izhank216/MultiEFI/pkg/recovery"
	"github.com/izhank216/MultiEFI/pkg/selector"
	"github.com/izhank216/MultiEFI/pkg/storage"
	"github.com/izhank216/MultiEFI/pkg/tpm"
	"github.com/izhank216/MultiEFI/pkg/vpd"
)

var banner = `
 __  __       _ _   _ _____ _____ ___ 
|  \/  |_   _| | |_(_) ____|  ___|_ _|
| |\/| | | | | | __| |  _| | |_   | | 
| |  | | |_| | | |_| | |___|  _|  | | 
|_|  |_|\__,_|_|\__|_|_____|_|   |___|
`

var (
	doDebug      = flag.BoolP("debug", "d", false, "Print debug output")
	dryRun       = flag.Bool("dryrun", false, "Do everything except booting the selected image")
	volumePath   = flag.String("volume", "/boot/efi", "Mount point of the boot volume")
	devicePath   = flag.String("device", "", "Block device of the boot volume, its mount point overrides --volume")
	deviceWait   = flag.Duration("device-wait", 10*time.Second, "How long to wait for --device to be mounted")
	product      = flag.String("product", bootconfig.DefaultProduct, "Product name, the configuration is read from EFI/<product>/<product>.cfg")
	timeout      = flag.Duration("timeout", selector.DefaultTimeout, "How long the menu waits for a key, must be positive")
	strategy     = flag.String("strategy", booter.StrategyFile, "How images are handed to the loader: file or devicepath")
	attempts     = flag.Int("attempts", bootflow.DefaultMaxAttempts, "Boot attempts before giving up, 1 never returns to the menu")
	measure      = flag.Bool("measure", false, "Measure the configuration and the boot image into the TPM")
	recoveryMode = flag.String("recovery", "none", "What to do when booting fails: reboot, poweroff or none")
)

var debug = func(string, ...interface{}) {}

func main() {
	flag.Parse()
	if *doDebug {
		debug = log.Printf
	} else {
		log.SetOutput(io.Discard)
	}

	applyVpdDefaults(flag.CommandLine)
	if err := checkTimeout(*timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootflow.ExitConfigError)
	}

	recoverer, err := newRecoverer(*recoveryMode, *doDebug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootflow.ExitConfigError)
	}

	tty, err := console.NewTTY(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootflow.ExitConfigError)
	}
	tty.Printf("%s\n=== MultiEFI Loader ===\n", banner)

	root := *volumePath
	if *devicePath != "" {
		debug("Waiting for %s to be mounted", *devicePath)
		mountpoint, err := storage.WaitForMountpoint(*devicePath, *deviceWait)
		if err != nil {
			fail(tty, recoverer, bootflow.ExitConfigError, "Can't find boot volume: "+err.Error())
		}
		root = mountpoint
	}
	debug("Using boot volume %s", root)
	volume := os.DirFS(root)

	kl := loader.NewKexecLoader(root)
	kl.Measure = *measure
	bootStrategy := *strategy
	if *dryRun {
		debug("Dry-run mode: will not boot")
		bootStrategy = "null"
	}
	b, err := booter.NewBooter(bootStrategy, kl, volume)
	if err != nil {
		fail(tty, recoverer, bootflow.ExitConfigError, err.Error())
	}
	debug("Using %s booter", b.TypeName())

	cfg := bootflow.Config{
		ConfigPath:  bootconfig.ConfigPath(*product),
		Timeout:     *timeout,
		MaxAttempts: *attempts,
	}
	if *measure {
		cfg.MeasureConfig = func(data []byte, info string) {
			tpm.TryMeasureData(tpm.ConfigDataPCR, data, info)
		}
	}

	result := bootflow.Run(bootflow.Platform{
		Volume:  volume,
		Console: tty,
		Booter:  b,
	}, cfg)
	debug("Run ended in state %v after %d attempts: %v", result.State, result.Attempts, result.Trace)

	code := result.ExitCode()
	if code != bootflow.ExitHandedOff {
		msg := result.Err.Error()
		if code == bootflow.ExitInvokeFailure {
			msg = fmt.Sprintf("Can't boot %s: %v (status %v)", result.Entry.Name, result.Err, result.Status())
		}
		fail(tty, recoverer, code, msg)
	}
	tty.Close() //nolint:errcheck
}

// applyVpdDefaults lets firmware VPD values replace the defaults of flags
// that were not given on the command line
func applyVpdDefaults(fs *flag.FlagSet) {
	if !fs.Changed("timeout") {
		t, ok, err := vpd.GetTimeout()
		if err != nil {
			log.Printf("Ignoring VPD timeout: %v", err)
		} else if ok {
			debug("Using timeout %v from VPD", t)
			if err := fs.Set("timeout", t.String()); err != nil {
				log.Printf("Ignoring VPD timeout: %v", err)
			}
		}
	}
	for name, key := range map[string]string{"product": vpd.ProductKey, "strategy": vpd.StrategyKey} {
		if fs.Changed(name) {
			continue
		}
		value, ok, err := vpd.GetString(key)
		if err != nil {
			log.Printf("Ignoring VPD %s: %v", key, err)
			continue
		}
		if ok && value != "" {
			debug("Using %s %q from VPD", name, value)
			if err := fs.Set(name, value); err != nil {
				log.Printf("Ignoring VPD %s: %v", key, err)
			}
		}
	}
}

func checkTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", timeout)
	}
	return nil
}

func newRecoverer(mode string, debug bool) (recovery.Recoverer, error) {
	switch mode {
	case "reboot":
		return recovery.SecureRecoverer{Reboot: true, Sync: true, Debug: debug}, nil
	case "poweroff":
		return recovery.SecureRecoverer{Reboot: false, Sync: true, Debug: debug}, nil
	case "none":
		return recovery.PermissiveRecoverer{Debug: debug}, nil
	default:
		return nil, fmt.Errorf("unknown recovery mode %q", mode)
	}
}

// fail reports a fatal error to the operator, runs the recovery handler
// and exits
func fail(tty *console.TTY, recoverer recovery.Recoverer, code int, message string) {
	tty.Printf("%s\n", message)
	tty.Close() //nolint:errcheck
	if err := recoverer.Recover(message); err != nil {
		log.Printf("Recovery: %v", err)
	}
	os.Exit(code)
}
