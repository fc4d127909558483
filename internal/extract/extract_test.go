package extract

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

const httpFunc = `using Microsoft.Azure.WebJobs;

public static class Orders
{
    [FunctionName("A")]
    public static IActionResult Run(
        [HttpTrigger(AuthorizationLevel.Function, "get")] HttpRequest req)
    {
        return new OkResult();
    }
}
`

const timerFunc = `using Microsoft.Azure.WebJobs;

public static class Cleanup
{
    [FunctionName("B")]
    public static void Run([TimerTrigger("0 */5 * * * *")] TimerInfo timer)
    {
    }
}
`

const noMarkers = `public static class Helpers
{
    public static string Normalize(string s) => s.Trim();
}
`

func TestScanDiscoversUnits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Orders.cs"), httpFunc)
	writeFile(t, filepath.Join(dir, "Cleanup.cs"), timerFunc)
	writeFile(t, filepath.Join(dir, "Helpers.cs"), noMarkers)

	res, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(res.Units) != 2 {
		t.Fatalf("Expected 2 units, got %d: %+v", len(res.Units), res.Units)
	}
	if res.Units[0].Name != "A" || res.Units[0].Kind != KindHTTP {
		t.Errorf("Expected unit {A HTTP}, got %+v", res.Units[0])
	}
	if res.Units[1].Name != "B" || res.Units[1].Kind != KindTimer {
		t.Errorf("Expected unit {B Timer}, got %+v", res.Units[1])
	}
	if res.SkippedFiles != 1 {
		t.Errorf("Expected 1 skipped file, got %d", res.SkippedFiles)
	}
	if len(res.Anomalies) != 0 {
		t.Errorf("Expected no anomalies, got %v", res.Anomalies)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	// Names chosen so name order differs from file-walk order.
	writeFile(t, filepath.Join(dir, "a", "Zeta.cs"),
		`[FunctionName("Zeta")] x [HttpTrigger] y`)
	writeFile(t, filepath.Join(dir, "b", "Alpha.cs"),
		`[FunctionName("Alpha")] x [TimerTrigger] y`)

	first, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("First scan failed: %v", err)
	}
	second, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if len(first.Units) != len(second.Units) {
		t.Fatalf("Unit count differs between scans: %d vs %d", len(first.Units), len(second.Units))
	}
	for i := range first.Units {
		if first.Units[i].Name != second.Units[i].Name || first.Units[i].Kind != second.Units[i].Kind {
			t.Errorf("Unit %d differs between scans: %+v vs %+v", i, first.Units[i], second.Units[i])
		}
	}
	if first.Units[0].Name != "Alpha" {
		t.Errorf("Expected units sorted by name, got %q first", first.Units[0].Name)
	}
}

func TestScanFirstMatchWins(t *testing.T) {
	// A file mentioning both HttpTrigger and TimerTrigger is classified
	// by marker declaration order, not specificity.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Mixed.cs"),
		`[FunctionName("Mixed")] [TimerTrigger] also mentions HttpTrigger`)

	res, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Units) != 1 || res.Units[0].Kind != KindHTTP {
		t.Fatalf("Expected first-match HTTP classification, got %+v", res.Units)
	}
}

func TestScanMarkerWithoutName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Broken.cs"), `[HttpTrigger] but no name attribute`)
	writeFile(t, filepath.Join(dir, "Good.cs"), httpFunc)

	res, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Units) != 1 {
		t.Fatalf("Expected 1 unit, got %d", len(res.Units))
	}
	if len(res.Anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %v", res.Anomalies)
	}
}

func TestScanNoUnits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Helpers.cs"), noMarkers)

	_, err := Scan(dir, discardLogger())
	if !errors.Is(err, ErrNoUnits) {
		t.Fatalf("Expected ErrNoUnits, got %v", err)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), discardLogger())
	if err == nil {
		t.Fatal("Expected error for missing source root")
	}
}

func TestScanManifestDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Orders.cs"), httpFunc)
	writeFile(t, filepath.Join(dir, "App.csproj"), `<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="Microsoft.NET.Sdk.Functions" Version="4.2.0" />
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
  </ItemGroup>
</Project>
`)

	res, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Dependencies) != 2 {
		t.Fatalf("Expected 2 deduplicated dependencies, got %+v", res.Dependencies)
	}
	if res.Dependencies[0].SourcePackageName != "Microsoft.NET.Sdk.Functions" {
		t.Errorf("Expected sorted dependencies, got %+v", res.Dependencies)
	}
}

func TestScanSkipsBuildOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Orders.cs"), httpFunc)
	writeFile(t, filepath.Join(dir, "bin", "Copy.cs"), timerFunc)
	writeFile(t, filepath.Join(dir, "obj", "Copy.cs"), timerFunc)
	writeFile(t, filepath.Join(dir, "migration-20240101-000000", "Copy.cs"), timerFunc)

	res, err := Scan(dir, discardLogger())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Units) != 1 {
		t.Fatalf("Expected build output to be skipped, got units %+v", res.Units)
	}
}
