package entity

// Customization holds the raw per-entity section from the
// customization file. Top-level keys (bridge_type, on_value, feature
// toggles) stay in Root; the config_vars block feeds the discovery
// payload.
type Customization struct {
	Root       map[string]any
	ConfigVars map[string]any
}

// ParseCustomization splits a decoded YAML section into root keys and
// config_vars.
func ParseCustomization(raw map[string]any) Customization {
	c := Customization{
		Root:       make(map[string]any, len(raw)),
		ConfigVars: map[string]any{},
	}
	for k, v := range raw {
		if k == "config_vars" {
			if vars, ok := v.(map[string]any); ok {
				c.ConfigVars = vars
			}
			continue
		}
		c.Root[k] = v
	}
	return c
}

// BridgeType returns the forced bridge type, or "" when the generator
// should pick one.
func (c Customization) BridgeType() string {
	if v, ok := c.Root["bridge_type"]; ok {
		return coerceString(v)
	}
	return ""
}

// Flag returns a boolean root key, falling back to def when absent.
func (c Customization) Flag(key string, def bool) bool {
	if v, ok := c.Root[key]; ok {
		return coerceBool(v)
	}
	return def
}

// HasFlag reports whether the root key is present at all.
func (c Customization) HasFlag(key string) bool {
	_, ok := c.Root[key]
	return ok
}

// Overrides converts the customization into entity overrides.
func (c Customization) Overrides() Overrides {
	return Overrides{Root: c.Root, ConfigVars: c.ConfigVars}
}

// SetConfigVarDefault fills a config_vars key only when the file does
// not already set it. Generators use it to inject guessed device
// classes without clobbering user choices.
func (c *Customization) SetConfigVarDefault(key string, value any) {
	if c.ConfigVars == nil {
		c.ConfigVars = map[string]any{}
	}
	if _, ok := c.ConfigVars[key]; !ok {
		c.ConfigVars[key] = value
	}
}

// Customizations indexes customization sections by entity display
// name.
type Customizations struct {
	Devices   map[string]Customization
	Variables map[string]Customization
}

// Device returns the customization for a device name, empty when none
// is configured.
func (c Customizations) Device(name string) Customization {
	if cust, ok := c.Devices[name]; ok {
		return cust
	}
	return Customization{}
}

// Variable returns the customization for a variable name.
func (c Customizations) Variable(name string) Customization {
	if cust, ok := c.Variables[name]; ok {
		return cust
	}
	return Customization{}
}

// GeneratorSettings carries the bridge-level knobs the protocol
// generators consult when deciding which entities to build.
type GeneratorSettings struct {
	EventPrefix          string
	CreateBatterySensors bool
	CreateLEDBacklights  bool
	InsteonNoCommMinutes int
	Customizations       Customizations
}
