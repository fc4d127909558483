package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Build-tool output is matched as plain text, not structured output.
// That is fragile against tool version drift, but it mirrors how the
// counts were always derived and avoids coupling to any one build tool's
// reporting plugins.

var testSummaryPattern = regexp.MustCompile(
	`Tests run:\s*(\d+),\s*Failures:\s*(\d+),\s*Errors:\s*(\d+)(?:,\s*Skipped:\s*(\d+))?`)

// countCompileErrors counts compiler error lines in the build output.
func countCompileErrors(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "[ERROR]") {
			count++
		}
	}
	return count
}

// parseTestSummary sums every test-summary line in the output and
// returns (passed, failed). Failures and errors both count as failed;
// skipped tests count as neither.
func parseTestSummary(output string) (int, int) {
	passed, failed := 0, 0
	for _, m := range testSummaryPattern.FindAllStringSubmatch(output, -1) {
		run := atoiOrZero(m[1])
		bad := atoiOrZero(m[2]) + atoiOrZero(m[3])
		skipped := atoiOrZero(m[4])
		failed += bad
		if ok := run - bad - skipped; ok > 0 {
			passed += ok
		}
	}
	return passed, failed
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
