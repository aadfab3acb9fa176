package tpm

import (
	"log"
)

const (
	// ImagePCR receives boot images, like firmware does for
	// EFI_BOOT_SERVICES_APPLICATION
	ImagePCR uint32 = 4
	// ConfigDataPCR receives the boot menu configuration
	ConfigDataPCR uint32 = 8
)

// Measurer extends data into a PCR
type Measurer interface {
	Measure(pcr uint32, data []byte) error
}

// OpenMeasurer opens the TPM for each measurement. It is replaced in tests.
var OpenMeasurer = func() (Measurer, func() error, error) {
	t, err := Open()
	if err != nil {
		return nil, nil, err
	}
	return t, t.Close, nil
}

// TryMeasureData measures a byte array with additional information. A
// missing TPM or a failed measurement is logged and otherwise ignored, it
// never prevents booting.
func TryMeasureData(pcr uint32, data []byte, info string) {
	m, closeFn, err := OpenMeasurer()
	if err != nil {
		log.Printf("Cannot open TPM: %v", err)
		return
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Printf("Cannot close TPM: %v", err)
		}
	}()
	log.Printf("Measuring blob: %v", info)
	if err := m.Measure(pcr, data); err != nil {
		log.Printf("Cannot measure %v: %v", info, err)
	}
}
