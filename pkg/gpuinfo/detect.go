package gpuinfo

import (
	"strings"

	"github.com/jaypipes/ghw"
)

// HasNVIDIAGPU reports whether an NVIDIA graphics card shows up on the PCI
// bus, independent of any driver tooling. Used to give a better hint when
// nvidia-smi is missing.
func HasNVIDIAGPU() (bool, error) {
	gpus, err := ghw.GPU()
	if err != nil {
		return false, err
	}
	for _, card := range gpus.GraphicsCards {
		if card.DeviceInfo == nil || card.DeviceInfo.Vendor == nil {
			continue
		}
		if strings.Contains(strings.ToLower(card.DeviceInfo.Vendor.Name), "nvidia") {
			return true, nil
		}
	}
	return false, nil
}
