package pipeline

import "testing"

func TestCountCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{"no errors", "[INFO] BUILD SUCCESS\n", 0},
		{"two errors", "[ERROR] Foo.java:[3,8] cannot find symbol\n[INFO] x\n[ERROR] Bar.java:[9,1] ';' expected\n", 2},
		{"empty output", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countCompileErrors(tt.output); got != tt.want {
				t.Errorf("countCompileErrors() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTestSummary(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantPassed int
		wantFailed int
	}{
		{
			"single module",
			"Tests run: 10, Failures: 2, Errors: 1, Skipped: 1\n",
			6, 3,
		},
		{
			"multiple modules summed",
			"Tests run: 4, Failures: 0, Errors: 0, Skipped: 0\nnoise\nTests run: 3, Failures: 1, Errors: 0, Skipped: 0\n",
			6, 1,
		},
		{
			"no skipped field",
			"Tests run: 5, Failures: 0, Errors: 0\n",
			5, 0,
		},
		{"no summary line", "[INFO] nothing here\n", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, failed := parseTestSummary(tt.output)
			if passed != tt.wantPassed || failed != tt.wantFailed {
				t.Errorf("parseTestSummary() = (%d, %d), want (%d, %d)",
					passed, failed, tt.wantPassed, tt.wantFailed)
			}
		})
	}
}
