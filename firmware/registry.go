package firmware

import (
	"sync"

	"github.com/sg2002/aic8800/driverr"
)

// registry holds firmware blobs by name, populated by board integrators
// at startup. There is no embed-by-default set here, matching this driver's
// library role: board code decides which blobs its image actually carries,
// mirroring how board packages elsewhere (e.g. board/usbarmory) wire up
// board-specific resources rather than the driver package itself embedding
// them.
var (
	registryMu sync.RWMutex
	registry   = map[string][]byte{}
)

// Register adds or replaces the blob served under name.
func Register(name string, data []byte) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = data
}

// ByName returns the blob registered under name.
func ByName(name string) ([]byte, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	data, ok := registry[name]
	if !ok {
		return nil, driverr.Newf("firmware-by-name", driverr.KindNoDevice, "firmware %q not registered", name)
	}

	return data, nil
}
