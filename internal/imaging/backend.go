package imaging

import (
	"fmt"
	"image"
	"sort"
	"sync"
)

// Backend runs the edge detection and thinning stages.
type Backend interface {
	// Name identifies the backend in configuration and logs.
	Name() string

	// Edges returns the Canny edge mask of img.
	Edges(img image.Image, opts EdgeOptions) (*Mask, error)

	// Thin reduces an edge mask to one-pixel-wide centerlines.
	Thin(m *Mask) (*Mask, error)
}

// NativeBackend is the pure Go implementation.
const NativeBackend = "native"

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() Backend{
		NativeBackend: func() Backend { return nativeBackend{} },
	}
)

// RegisterBackend makes a backend available by name. It is called from init
// functions of optional backends.
func RegisterBackend(name string, factory func() Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// NewBackend returns the backend registered under name. An empty name
// selects the native backend.
func NewBackend(name string) (Backend, error) {
	if name == "" {
		name = NativeBackend
	}
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Backends())
	}
	return factory(), nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type nativeBackend struct{}

func (nativeBackend) Name() string { return NativeBackend }

func (nativeBackend) Edges(img image.Image, opts EdgeOptions) (*Mask, error) {
	return DetectEdges(img, opts)
}

func (nativeBackend) Thin(m *Mask) (*Mask, error) {
	return Skeletonize(m), nil
}
