package bridge

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
)

// customizeFile mirrors the customization YAML document.
type customizeFile struct {
	Devices   map[string]map[string]any `yaml:"devices"`
	Variables map[string]map[string]any `yaml:"variables"`
}

// LoadCustomizations reads the per-device/per-variable override file.
// A missing or unreadable file is an error the caller should log; the
// bridge then continues with empty customizations. An empty file is
// valid and yields no overrides.
func LoadCustomizations(path string) (entity.Customizations, error) {
	out := entity.Customizations{
		Devices:   map[string]entity.Customization{},
		Variables: map[string]entity.Customization{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("reading customization file: %w", err)
	}

	var doc customizeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("parsing customization file: %w", err)
	}

	for name, raw := range doc.Devices {
		out.Devices[name] = entity.ParseCustomization(raw)
	}
	for name, raw := range doc.Variables {
		out.Variables[name] = entity.ParseCustomization(raw)
	}
	return out, nil
}

// ValidateBridgeTypes checks every bridge_type override against the
// generator registries. Unknown names are configuration errors
// surfaced at startup rather than silent no-ops during rebuild.
func ValidateBridgeTypes(c entity.Customizations, deviceKnown, variableKnown func(string) bool) error {
	var bad []string

	for name, cust := range c.Devices {
		if bt := cust.BridgeType(); bt != "" && !deviceKnown(bt) {
			bad = append(bad, fmt.Sprintf("devices.%s: unknown bridge_type %q", name, bt))
		}
	}
	for name, cust := range c.Variables {
		if bt := cust.BridgeType(); bt != "" && !variableKnown(bt) {
			bad = append(bad, fmt.Sprintf("variables.%s: unknown bridge_type %q", name, bt))
		}
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("customization errors: %s", strings.Join(bad, "; "))
	}
	return nil
}
