package entity

// Passive is an entity that publishes nothing to MQTT. Insteon remotes
// use it: they exist only to translate button presses into Home
// Assistant events, so there is no discovery config to manage.
type Passive struct {
	Base
}

// NewPassive builds a passive entity.
func NewPassive(env Env, id, name, address string, overrides Overrides) *Passive {
	return &Passive{Base: newBase(env, "", id, name, address, overrides)}
}

func (p *Passive) Config() map[string]any { return nil }
func (p *Passive) Register() error        { return nil }
func (p *Passive) Cleanup() error         { return nil }
