package slidingsync

// extensionRegistry is a name-keyed map of extension configurations, kept in
// insertion order so request/log rendering is deterministic (§9).
type extensionRegistry struct {
	order        []string
	generic      map[string]*ExtensionConfig
	toDevice     *ToDeviceExtensionConfig
	toDeviceName string
}

const extensionNameToDevice = "to_device"

// AllExtensionNames is the fixed set enable_all_extensions installs.
var AllExtensionNames = []string{"e2ee", extensionNameToDevice, "account_data", "typing", "receipts"}

func newExtensionRegistry() *extensionRegistry {
	return &extensionRegistry{generic: make(map[string]*ExtensionConfig)}
}

// enable installs a config for the named extension. to_device gets the
// dedicated variant carrying since; every other name gets the generic
// {enabled} shape.
func (r *extensionRegistry) enable(name string) {
	if name == extensionNameToDevice {
		if r.toDevice == nil {
			r.toDevice = &ToDeviceExtensionConfig{Enabled: true}
			r.order = append(r.order, name)
		} else {
			r.toDevice.Enabled = true
		}
		return
	}
	if _, ok := r.generic[name]; !ok {
		r.generic[name] = &ExtensionConfig{Enabled: true}
		r.order = append(r.order, name)
	} else {
		r.generic[name].Enabled = true
	}
}

func (r *extensionRegistry) enableAll() {
	for _, name := range AllExtensionNames {
		r.enable(name)
	}
}

// names returns enabled extension names in insertion order.
func (r *extensionRegistry) names() []string {
	out := make([]string, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, n)
	}
	return out
}

func (r *extensionRegistry) isEmpty() bool {
	return len(r.order) == 0
}

// refreshToDeviceSince is invoked by the request builder; it only affects
// the registry's bookkeeping if a to_device config was ever enabled, since
// the actual source of truth for the since-token lives on the cursor.
func (r *extensionRegistry) refreshToDeviceSince(since *string) {
	if r.toDevice != nil {
		r.toDevice.Since = since
	}
}
