package indigo

import "sync"

// Registry is the in-memory mirror of the upstream device and
// variable set. The upstream feed populates it; the bridge reads it
// during rebuilds. Snapshots are deep copies in both directions, so a
// caller can never observe a half-written device.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
type Registry struct {
	mu        sync.RWMutex
	devices   map[int64]*Device
	variables map[int64]*Variable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:   map[int64]*Device{},
		variables: map[int64]*Variable{},
	}
}

// UpsertDevice stores dev and returns the previous snapshot, nil when
// the device is new.
func (r *Registry) UpsertDevice(dev *Device) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.devices[dev.ID]
	r.devices[dev.ID] = dev.DeepCopy()
	return prev
}

// RemoveDevice deletes a device and returns its last snapshot, nil
// when it was not tracked.
func (r *Registry) RemoveDevice(id int64) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.devices[id]
	delete(r.devices, id)
	return prev
}

// Device returns a snapshot of one device.
func (r *Registry) Device(id int64) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	return dev.DeepCopy(), ok
}

// Devices returns a snapshot of every tracked device.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev.DeepCopy())
	}
	return out
}

// UpsertVariable stores v and returns the previous snapshot, nil when
// the variable is new.
func (r *Registry) UpsertVariable(v *Variable) *Variable {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.variables[v.ID]
	cpy := *v
	r.variables[v.ID] = &cpy
	return prev
}

// RemoveVariable deletes a variable and returns its last snapshot.
func (r *Registry) RemoveVariable(id int64) *Variable {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.variables[id]
	delete(r.variables, id)
	return prev
}

// Variable returns a snapshot of one variable.
func (r *Registry) Variable(id int64) (*Variable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[id]
	if !ok {
		return nil, false
	}
	cpy := *v
	return &cpy, true
}

// Variables returns a snapshot of every tracked variable.
func (r *Registry) Variables() []*Variable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Variable, 0, len(r.variables))
	for _, v := range r.variables {
		cpy := *v
		out = append(out, &cpy)
	}
	return out
}
