package tpm

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

// TPMDevices lists the TPM character devices. The resource manager device is
// tried first.
var TPMDevices = []string{"/dev/tpmrm0", "/dev/tpm0"}

// TPM is an open TPM 2.0 device
type TPM struct {
	device transport.TPMCloser
}

// Open returns a handle to the first TPM device that can be opened
func Open() (*TPM, error) {
	var lastErr error
	for _, dev := range TPMDevices {
		t, err := transport.OpenTPM(dev)
		if err == nil {
			return &TPM{device: t}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cannot open TPM: %w", lastErr)
}

// New wraps an already open transport, e.g. a simulator
func New(device transport.TPMCloser) *TPM {
	return &TPM{device: device}
}

// Close the device
func (t *TPM) Close() error {
	return t.device.Close()
}

// Measure extends the SHA-256 digest of data into a PCR
func (t *TPM) Measure(pcr uint32, data []byte) error {
	digest := sha256.Sum256(data)
	_, err := tpm2.PCRExtend{
		PCRHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMHandle(pcr),
			Auth:   tpm2.PasswordAuth(nil),
		},
		Digests: tpm2.TPMLDigestValues{
			Digests: []tpm2.TPMTHA{
				{
					HashAlg: tpm2.TPMAlgSHA256,
					Digest:  digest[:],
				},
			},
		},
	}.Execute(t.device)
	if err != nil {
		return fmt.Errorf("cannot extend PCR %d: %w", pcr, err)
	}
	return nil
}
