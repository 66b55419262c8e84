// Package iface derives hierarchical interface groupings from the input
// directory layout and from the naming conventions embedded in cluster
// identifiers.
package iface

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kgweave/kgweave/record"
)

// Definition names an interface to create, with its generated description.
type Definition struct {
	Name        string
	Description string
}

// Rule maps cluster identifiers to an interface name. Rules are evaluated
// in order; the first matching rule wins.
type Rule struct {
	// Match reports whether this rule applies to the cluster identifier.
	Match func(clusterID string) bool
	// Name derives the target interface name. Returning "" means no
	// assignment even though the rule matched.
	Name func(clusterID string) string
}

// Rules is the ordered assignment rule set.
//
// book-01-ch02-facts  -> book-01
// prereq-lists        -> prerequisites
// stream_target-fold  -> source-targets
// playbook-deploy     -> playbooks
var Rules = []Rule{
	{
		Match: func(id string) bool { return strings.HasPrefix(id, "book-") },
		Name: func(id string) string {
			parts := strings.Split(id, "-")
			if len(parts) < 2 {
				return ""
			}
			return parts[0] + "-" + parts[1]
		},
	},
	{
		Match: func(id string) bool { return strings.HasPrefix(id, "prereq-") },
		Name:  func(string) string { return "prerequisites" },
	},
	{
		Match: func(id string) bool {
			return strings.Contains(id, "_target-") || strings.HasSuffix(id, "_target")
		},
		Name: func(string) string { return "source-targets" },
	},
	{
		Match: func(id string) bool { return strings.HasPrefix(id, "playbook-") },
		Name:  func(string) string { return "playbooks" },
	},
}

// Derive returns the interface name for a cluster identifier, or false
// when no rule applies.
func Derive(clusterID string) (string, bool) {
	for _, rule := range Rules {
		if !rule.Match(clusterID) {
			continue
		}
		name := rule.Name(clusterID)
		return name, name != ""
	}
	return "", false
}

// FromStructure derives interface definitions from the directory layout:
// one per category present, one per education book-* subdirectory, and one
// per source module prefixed "source-". Names are returned sorted and
// deduplicated.
func FromStructure(baseDir string) ([]Definition, error) {
	names := make(map[string]bool)

	for _, category := range record.Categories {
		dir := filepath.Join(baseDir, category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // category not present
		}

		names[category] = true

		switch category {
		case "education":
			for _, entry := range entries {
				if entry.IsDir() && strings.HasPrefix(entry.Name(), "book-") {
					names[entry.Name()] = true
				}
			}
		case "source":
			for _, entry := range entries {
				if entry.IsDir() {
					names["source-"+entry.Name()] = true
				}
			}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	defs := make([]Definition, 0, len(sorted))
	for _, name := range sorted {
		defs = append(defs, Definition{
			Name:        name,
			Description: fmt.Sprintf("Auto-generated interface for %s", name),
		})
	}
	return defs, nil
}
