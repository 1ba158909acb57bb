package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Aliases maps generic request categories onto the finer-grained taxonomy
// actually stored in item metadata (e.g. "scheduling" covers
// "dental_practice_management"). The table is data, not code: it extends by
// editing the YAML file, without redeployment.
type Aliases struct {
	table map[string][]string
}

// defaultAliases covers the generic categories the interview and review
// stages request out of the box. A loaded alias file replaces this table.
var defaultAliases = map[string][]string{
	"scheduling":    {"scheduling", "appointment_software", "dental_practice_management", "field_service_management"},
	"accounting":    {"accounting", "bookkeeping", "payroll"},
	"communication": {"communication", "team_chat", "voip"},
	"marketing":     {"marketing", "email_marketing", "review_management", "crm"},
	"automation":    {"automation", "workflow_automation", "document_processing"},
	"analytics":     {"analytics", "reporting", "business_intelligence"},
}

// NewAliases returns the built-in alias table.
func NewAliases() *Aliases {
	return &Aliases{table: defaultAliases}
}

// LoadAliases reads an alias table from a YAML file of the form:
//
//	scheduling:
//	  - appointment_software
//	  - dental_practice_management
func LoadAliases(path string) (*Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias file %s: %w", path, err)
	}

	table := make(map[string][]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}

	// Normalize keys and make every category match itself.
	normalized := make(map[string][]string, len(table))
	for key, values := range table {
		key = strings.ToLower(strings.TrimSpace(key))
		seen := map[string]bool{key: true}
		expanded := []string{key}
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			expanded = append(expanded, v)
		}
		normalized[key] = expanded
	}

	return &Aliases{table: normalized}, nil
}

// Resolve expands a generic category into the set of stored taxonomy values
// it covers. Unknown categories resolve to themselves.
func (a *Aliases) Resolve(category string) []string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil
	}
	if expanded, ok := a.table[category]; ok {
		return expanded
	}
	return []string{category}
}

// Matches reports whether the stored taxonomy value falls under the given
// generic category.
func (a *Aliases) Matches(category, stored string) bool {
	stored = strings.ToLower(strings.TrimSpace(stored))
	for _, v := range a.Resolve(category) {
		if v == stored {
			return true
		}
	}
	return false
}
