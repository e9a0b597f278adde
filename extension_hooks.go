package trust

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-trust/core"
)

// ListenerPack is a named group of change listeners registered together,
// typically one pack per embedding feature (settings screen, widget host).
type ListenerPack struct {
	Name      string
	Listeners []core.ChangeListener
}

// ConnectivityPack is a named group of connectivity listeners.
type ConnectivityPack struct {
	Name      string
	Listeners []core.ConnectivityListener
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects listener packs and command/query bundles before a
// session manager exists, then applies them once it does. Registration is
// name-keyed and rejects duplicates.
type ExtensionHooks struct {
	mu sync.RWMutex

	listenerPacks     map[string]ListenerPack
	connectivityPacks map[string]ConnectivityPack
	bundles           map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		listenerPacks:     map[string]ListenerPack{},
		connectivityPacks: map[string]ConnectivityPack{},
		bundles:           map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterListenerPack(pack ListenerPack) error {
	if h == nil {
		return fmt.Errorf("trust: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("trust: listener pack name is required")
	}
	if len(pack.Listeners) == 0 {
		return fmt.Errorf("trust: listener pack %q has no listeners", name)
	}

	normalized := ListenerPack{
		Name:      name,
		Listeners: append([]core.ChangeListener(nil), pack.Listeners...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.listenerPacks[name]; exists {
		return fmt.Errorf("trust: listener pack %q already registered", name)
	}
	h.listenerPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterConnectivityPack(pack ConnectivityPack) error {
	if h == nil {
		return fmt.Errorf("trust: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("trust: connectivity pack name is required")
	}
	if len(pack.Listeners) == 0 {
		return fmt.Errorf("trust: connectivity pack %q has no listeners", name)
	}

	normalized := ConnectivityPack{
		Name:      name,
		Listeners: append([]core.ConnectivityListener(nil), pack.Listeners...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connectivityPacks[name]; exists {
		return fmt.Errorf("trust: connectivity pack %q already registered", name)
	}
	h.connectivityPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("trust: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("trust: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("trust: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("trust: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyListenerPacks attaches every registered change listener to the
// manager's registry in pack-name order.
func (h *ExtensionHooks) ApplyListenerPacks(registry *core.ListenerRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("trust: listener registry is required")
	}

	for _, pack := range h.ListenerPacks() {
		for _, listener := range pack.Listeners {
			if listener == nil {
				return fmt.Errorf("trust: listener pack %q contains nil listener", pack.Name)
			}
			registry.Add(listener)
		}
	}
	return nil
}

// ApplyConnectivityPacks attaches every registered connectivity listener to
// the gate in pack-name order.
func (h *ExtensionHooks) ApplyConnectivityPacks(gate *core.ConnectivityGate) error {
	if h == nil {
		return nil
	}
	if gate == nil {
		return fmt.Errorf("trust: connectivity gate is required")
	}

	for _, pack := range h.ConnectivityPacks() {
		for _, listener := range pack.Listeners {
			if listener == nil {
				return fmt.Errorf("trust: connectivity pack %q contains nil listener", pack.Name)
			}
			gate.AddListener(listener)
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("trust: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ListenerPacks() []ListenerPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.listenerPacks))
	for name := range h.listenerPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ListenerPack, 0, len(names))
	for _, name := range names {
		pack := h.listenerPacks[name]
		out = append(out, ListenerPack{
			Name:      pack.Name,
			Listeners: append([]core.ChangeListener(nil), pack.Listeners...),
		})
	}
	return out
}

func (h *ExtensionHooks) ConnectivityPacks() []ConnectivityPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.connectivityPacks))
	for name := range h.connectivityPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ConnectivityPack, 0, len(names))
	for _, name := range names {
		pack := h.connectivityPacks[name]
		out = append(out, ConnectivityPack{
			Name:      pack.Name,
			Listeners: append([]core.ConnectivityListener(nil), pack.Listeners...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
