// Package mapping translates source package references (NuGet names)
// into target build-manifest dependencies (Maven coordinates) via a
// static lookup table. The table ships embedded and can be replaced
// wholesale by a user-provided YAML file.
package mapping

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funcport/funcport/internal/extract"
)

//go:embed mappings.yaml
var defaultMappings []byte

type entry struct {
	Source   string `yaml:"source"`
	Group    string `yaml:"group"`
	Artifact string `yaml:"artifact"`
	Version  string `yaml:"version"`
}

type tableFile struct {
	Mappings []entry `yaml:"mappings"`
}

// Table is a loaded package-mapping table.
type Table struct {
	byName map[string]entry
}

// Load returns the mapping table. When path is empty the embedded
// default table is used; otherwise the file at path replaces it.
func Load(path string) (*Table, error) {
	data := defaultMappings
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading mapping table: %w", err)
		}
	}

	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing mapping table: %w", err)
	}

	t := &Table{byName: make(map[string]entry, len(tf.Mappings))}
	for _, e := range tf.Mappings {
		if e.Source == "" {
			continue
		}
		t.byName[e.Source] = e
	}
	return t, nil
}

// Apply fills the mapped fields on each record that has a table entry.
// Records without an entry are left unmapped; they end up in the
// report's "needs manual resolution" list. Returns the mapped records
// and the count of unmapped ones.
func (t *Table) Apply(records []extract.DependencyRecord) ([]extract.DependencyRecord, int) {
	out := make([]extract.DependencyRecord, len(records))
	unmapped := 0
	for i, rec := range records {
		if e, ok := t.byName[rec.SourcePackageName]; ok {
			rec.MappedPackageName = e.Group + ":" + e.Artifact
			rec.MappedVersion = e.Version
		} else {
			unmapped++
		}
		out[i] = rec
	}
	return out, unmapped
}

// Unmapped returns the source names of records without a mapping,
// sorted for stable report output.
func Unmapped(records []extract.DependencyRecord) []string {
	var names []string
	for _, rec := range records {
		if rec.MappedPackageName == "" {
			names = append(names, rec.SourcePackageName)
		}
	}
	sort.Strings(names)
	return names
}

// GeneratePOMDependencies renders the <dependencies> block for the
// generated build manifest. Only mapped records appear; duplicates
// produced by many-to-one mappings are collapsed.
func GeneratePOMDependencies(records []extract.DependencyRecord) string {
	var b strings.Builder
	b.WriteString("<dependencies>\n")

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.MappedPackageName == "" {
			continue
		}
		key := rec.MappedPackageName + "@" + rec.MappedVersion
		if seen[key] {
			continue
		}
		seen[key] = true

		group, artifact, ok := strings.Cut(rec.MappedPackageName, ":")
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  <dependency>\n")
		fmt.Fprintf(&b, "    <groupId>%s</groupId>\n", group)
		fmt.Fprintf(&b, "    <artifactId>%s</artifactId>\n", artifact)
		if rec.MappedVersion != "" {
			fmt.Fprintf(&b, "    <version>%s</version>\n", rec.MappedVersion)
		}
		fmt.Fprintf(&b, "  </dependency>\n")
	}

	b.WriteString("</dependencies>\n")
	return b.String()
}

// PatchPOM inserts the rendered dependency elements into an existing
// pom.xml immediately before its closing </dependencies> tag. Returns
// the patched document and whether a patch point was found.
func PatchPOM(pom string, records []extract.DependencyRecord) (string, bool) {
	const closing = "</dependencies>"
	idx := strings.Index(pom, closing)
	if idx < 0 {
		return pom, false
	}

	block := GeneratePOMDependencies(records)
	// Strip the wrapper element; only the <dependency> children are
	// inserted into the existing block.
	inner := strings.TrimPrefix(block, "<dependencies>\n")
	inner = strings.TrimSuffix(inner, "</dependencies>\n")

	return pom[:idx] + inner + pom[idx:], true
}
