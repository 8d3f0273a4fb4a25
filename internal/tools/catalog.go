package tools

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// ToolID identifies one tool of the closed catalog.
type ToolID int

const (
	ListDevices ToolID = iota
	GetDeviceSettings
	ListWifiNetworks
	UpdateWifiSSID
	UpdateWifiSecurity
	ListUsers
	QueryUserActivity

	toolCount
)

var toolNames = [toolCount]string{
	ListDevices:        "list_devices",
	GetDeviceSettings:  "get_device_settings",
	ListWifiNetworks:   "list_wifi_networks",
	UpdateWifiSSID:     "update_wifi_ssid",
	UpdateWifiSecurity: "update_wifi_security",
	ListUsers:          "list_users",
	QueryUserActivity:  "query_user_activity",
}

func (id ToolID) String() string {
	if id < 0 || id >= toolCount {
		return fmt.Sprintf("ToolID(%d)", int(id))
	}
	return toolNames[id]
}

// LookupTool resolves a tool name to its ID.
func LookupTool(name string) (ToolID, bool) {
	for id, n := range toolNames {
		if n == name {
			return ToolID(id), true
		}
	}
	return 0, false
}

// ToolNames returns every tool name in catalog order.
func ToolNames() []string {
	out := make([]string, toolCount)
	copy(out, toolNames[:])
	return out
}

// Param describes one tool argument.
type Param struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Enum        []string `yaml:"enum"` // matched case-insensitively
	MinLength   *int     `yaml:"min_length"`
	MaxLength   *int     `yaml:"max_length"`
	Minimum     *float64 `yaml:"minimum"`
	Maximum     *float64 `yaml:"maximum"`
}

// ToolInfo is the discovery entry of a tool.
type ToolInfo struct {
	ID          ToolID  `yaml:"-" json:"-"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Write       bool    `yaml:"write" json:"-"`
	Params      []Param `yaml:"params" json:"-"`
}

// InputSchema builds the JSON Schema of the tool's arguments.
func (t ToolInfo) InputSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        "object",
		Description: t.Description,
		Properties:  make(map[string]*jsonschema.Schema, len(t.Params)),
	}
	for _, p := range t.Params {
		ps := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
			MinLength:   p.MinLength,
			MaxLength:   p.MaxLength,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
		}
		if len(p.Enum) > 0 {
			// Validators normalise case, so the schema must not reject "wpa2".
			ps.Pattern = caseInsensitivePattern(p.Enum)
			ps.Description = strings.TrimSuffix(ps.Description, ".") + ". One of " + strings.Join(p.Enum, ", ") + ", any case."
		}
		s.Properties[p.Name] = ps
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// caseInsensitivePattern builds an ECMA-262 pattern, which has no flags,
// matching exactly one of values in any letter case.
func caseInsensitivePattern(values []string) string {
	alts := make([]string, 0, len(values))
	for _, v := range values {
		var b strings.Builder
		for _, r := range v {
			lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
			if lower == upper {
				b.WriteString(regexp.QuoteMeta(string(r)))
				continue
			}
			b.WriteString("[" + string(lower) + string(upper) + "]")
		}
		alts = append(alts, b.String())
	}
	return "^(?:" + strings.Join(alts, "|") + ")$"
}

//go:embed catalog.yaml
var catalogRawData []byte

type catalogFile struct {
	Tools []ToolInfo `yaml:"tools"`
}

var (
	catalogOnce    sync.Once
	catalogEntries [toolCount]ToolInfo
	catalogErr     error
)

// Catalog returns the tool catalog indexed by ToolID. The embedded YAML is
// parsed once; an entry missing for any ToolID, or naming an unknown tool,
// is an error.
func Catalog() ([]ToolInfo, error) {
	catalogOnce.Do(loadCatalog)
	if catalogErr != nil {
		return nil, catalogErr
	}
	out := make([]ToolInfo, toolCount)
	copy(out, catalogEntries[:])
	return out, nil
}

func loadCatalog() {
	var f catalogFile
	if err := yaml.Unmarshal(catalogRawData, &f); err != nil {
		catalogErr = fmt.Errorf("catalog: parse yaml: %w", err)
		return
	}

	var seen [toolCount]bool
	for _, t := range f.Tools {
		id, ok := LookupTool(t.Name)
		if !ok {
			catalogErr = fmt.Errorf("catalog: unknown tool %q", t.Name)
			return
		}
		if seen[id] {
			catalogErr = fmt.Errorf("catalog: duplicate tool %q", t.Name)
			return
		}
		seen[id] = true
		t.ID = id
		catalogEntries[id] = t
	}
	for id, ok := range seen {
		if !ok {
			catalogErr = fmt.Errorf("catalog: no entry for %s", ToolID(id))
			return
		}
	}
}
