// Package extract discovers migratable function units and package
// references in a C# Azure Functions project by line-based pattern
// matching. It is deliberately not a C# parser: the markers it looks for
// (trigger attributes, FunctionName attributes, PackageReference entries)
// are stable enough in real projects that a shallow scan is sufficient,
// and the rest of the pipeline only depends on this package's interface,
// so a real parser could be substituted later without touching callers.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrNoUnits is returned when a scan of the whole source tree finds no
// migratable units. Every later phase assumes at least one unit exists,
// so callers treat this as a fatal precondition failure.
var ErrNoUnits = errors.New("no migratable units found in source tree")

// Kind classifies a unit by its trigger attribute.
type Kind string

const (
	KindHTTP       Kind = "HTTP"
	KindTimer      Kind = "Timer"
	KindQueue      Kind = "Queue"
	KindBlob       Kind = "Blob"
	KindChangeFeed Kind = "ChangeFeed"
	KindTopic      Kind = "Topic"
)

// Unit is one discovered source construct to be individually scaffolded.
// Units are created once during extraction and never mutated afterwards.
type Unit struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	SourceFile string `json:"source_file"`
}

// DependencyRecord is one external package reference found in the source
// project's manifest. The mapped fields are filled in later by the
// mapping table; empty mapped fields mean "needs manual resolution".
type DependencyRecord struct {
	SourcePackageName string `json:"source_package_name"`
	MappedPackageName string `json:"mapped_package_name,omitempty"`
	MappedVersion     string `json:"mapped_version,omitempty"`
}

// kindMarker associates a trigger attribute marker with its kind.
// Order matters: a file containing markers for multiple kinds is
// classified by the first marker in this list that matches anywhere in
// the file, not by the most specific match.
type kindMarker struct {
	marker string
	kind   Kind
}

var kindMarkers = []kindMarker{
	{"HttpTrigger", KindHTTP},
	{"TimerTrigger", KindTimer},
	{"QueueTrigger", KindQueue},
	{"BlobTrigger", KindBlob},
	{"CosmosDBTrigger", KindChangeFeed},
	{"ServiceBusTrigger", KindTopic},
}

// Matches both the in-process [FunctionName("X")] and the isolated-worker
// [Function("X")] attribute forms.
var namePattern = regexp.MustCompile(`\[Function(?:Name)?\(\s*"([^"]+)"`)

var packageRefPattern = regexp.MustCompile(`<PackageReference\s+Include="([^"]+)"`)

// Result holds everything a single extraction pass produced.
type Result struct {
	Units        []Unit
	Dependencies []DependencyRecord

	// SkippedFiles counts source files that had no trigger marker.
	SkippedFiles int
	// Anomalies lists non-fatal extraction problems (unreadable files,
	// trigger markers without a resolvable function name).
	Anomalies []string
}

// Scan walks the source tree rooted at root and extracts units and
// dependency records. Unreadable files are skipped with a warning; a
// tree with zero units returns ErrNoUnits. Units are sorted by name so
// downstream per-unit ordering does not depend on filesystem iteration
// order.
func Scan(root string, logger *slog.Logger) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	res := &Result{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Anomalies = append(res.Anomalies, fmt.Sprintf("unreadable path %s: %v", path, err))
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case strings.HasSuffix(path, ".cs"):
			scanSourceFile(path, res, logger)
		case strings.HasSuffix(path, ".csproj"):
			scanManifest(path, res, logger)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking source tree: %w", err)
	}

	if len(res.Units) == 0 {
		return nil, ErrNoUnits
	}

	sort.Slice(res.Units, func(i, j int) bool { return res.Units[i].Name < res.Units[j].Name })
	sort.Slice(res.Dependencies, func(i, j int) bool {
		return res.Dependencies[i].SourcePackageName < res.Dependencies[j].SourcePackageName
	})

	return res, nil
}

// skipDir filters build output and our own migration output directories.
func skipDir(name string) bool {
	if name == "bin" || name == "obj" || name == ".git" {
		return true
	}
	return strings.HasPrefix(name, "migration-")
}

func scanSourceFile(path string, res *Result, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		res.Anomalies = append(res.Anomalies, fmt.Sprintf("unreadable file %s: %v", path, err))
		logger.Warn("skipping unreadable source file", "path", path, "error", err)
		return
	}
	content := string(data)

	kind, ok := detectKind(content)
	if !ok {
		res.SkippedFiles++
		return
	}

	m := namePattern.FindStringSubmatch(content)
	if m == nil {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("%s: %s trigger marker present but no function name attribute found", path, kind))
		logger.Warn("trigger marker without function name", "path", path, "kind", string(kind))
		return
	}

	res.Units = append(res.Units, Unit{
		Name:       m[1],
		Kind:       kind,
		SourceFile: path,
	})
}

// detectKind returns the kind of the first marker (in declaration order)
// found anywhere in the file content.
func detectKind(content string) (Kind, bool) {
	for _, km := range kindMarkers {
		if strings.Contains(content, km.marker) {
			return km.kind, true
		}
	}
	return "", false
}

func scanManifest(path string, res *Result, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		res.Anomalies = append(res.Anomalies, fmt.Sprintf("unreadable manifest %s: %v", path, err))
		logger.Warn("skipping unreadable manifest", "path", path, "error", err)
		return
	}
	seen := make(map[string]bool, 8)
	for _, dep := range res.Dependencies {
		seen[dep.SourcePackageName] = true
	}
	for _, m := range packageRefPattern.FindAllStringSubmatch(string(data), -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		res.Dependencies = append(res.Dependencies, DependencyRecord{SourcePackageName: name})
	}
}
