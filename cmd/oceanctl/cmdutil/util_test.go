package cmdutil

import (
	"bytes"
	"testing"

	"github.com/marmos91/oceancache/pkg/axis"
)

func TestParseIntList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{name: "empty string", input: "", expected: []int{}},
		{name: "single item", input: "3", expected: []int{3}},
		{name: "multiple items", input: "1,4,9", expected: []int{1, 4, 9}},
		{name: "items with spaces", input: "1, 4 , 9", expected: []int{1, 4, 9}},
		{name: "empty items filtered out", input: "1,,4,", expected: []int{1, 4}},
		{name: "not a number", input: "1,x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseIntList(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseIntList(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIntList(%q) failed: %v", tt.input, err)
			}
			if result == nil {
				t.Fatalf("ParseIntList(%q) returned nil", tt.input)
			}
			if len(result) != len(tt.expected) {
				t.Errorf("ParseIntList(%q) = %v, want %v", tt.input, result, tt.expected)
				return
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("ParseIntList(%q)[%d] = %d, want %d", tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestParseLayerArgs(t *testing.T) {
	attr, ts, level, err := ParseLayerArgs([]string{"theta", "2011-09-13-0", "5.8"})
	if err != nil {
		t.Fatalf("ParseLayerArgs failed: %v", err)
	}
	if attr != "theta" || ts != axis.MustParseTimestamp("2011-09-13-0") || level != 5.8 {
		t.Errorf("Unexpected layer %s/%s/%v", attr, ts, level)
	}

	for _, args := range [][]string{
		{"theta", "2011-09-13-0"},
		{"theta", "yesterday", "5"},
		{"theta", "2011-09-13-0", "deep"},
	} {
		if _, _, _, err := ParseLayerArgs(args); err == nil {
			t.Errorf("ParseLayerArgs(%v) expected error", args)
		}
	}
}

func TestServerURL(t *testing.T) {
	Flags.ServerURL = ""
	t.Setenv(EnvServer, "")
	if got := ServerURL(); got != DefaultServerURL {
		t.Errorf("ServerURL() = %q, want %q", got, DefaultServerURL)
	}

	t.Setenv(EnvServer, "http://ocean:9000")
	if got := ServerURL(); got != "http://ocean:9000" {
		t.Errorf("ServerURL() = %q, want env value", got)
	}

	Flags.ServerURL = "http://flag:1"
	defer func() { Flags.ServerURL = "" }()
	if got := ServerURL(); got != "http://flag:1" {
		t.Errorf("ServerURL() = %q, want flag value", got)
	}
}

func TestBoolToYesNo(t *testing.T) {
	if BoolToYesNo(true) != "yes" || BoolToYesNo(false) != "no" {
		t.Error("BoolToYesNo returned unexpected values")
	}
}

func TestFormatInts(t *testing.T) {
	if got := FormatInts(nil); got != "-" {
		t.Errorf("FormatInts(nil) = %q, want -", got)
	}
	if got := FormatInts([]int{2, 5}); got != "2,5" {
		t.Errorf("FormatInts = %q, want 2,5", got)
	}
}

func TestPrintResourceWithSuccess(t *testing.T) {
	Flags.Output = "json"
	Flags.NoColor = true
	defer func() { Flags.Output, Flags.NoColor = "", false }()

	var buf bytes.Buffer
	if err := PrintResourceWithSuccess(&buf, map[string]int{"jobs": 2}, "done"); err != nil {
		t.Fatalf("PrintResourceWithSuccess failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"jobs": 2`)) {
		t.Errorf("Expected JSON output, got %q", buf.String())
	}

	Flags.Output = "table"
	buf.Reset()
	if err := PrintResourceWithSuccess(&buf, nil, "done"); err != nil {
		t.Fatalf("PrintResourceWithSuccess failed: %v", err)
	}
	if buf.String() != "done\n" {
		t.Errorf("Expected success message, got %q", buf.String())
	}
}

func TestConfirm_Force(t *testing.T) {
	var buf bytes.Buffer
	ok, err := Confirm(&buf, "Abort all caching rounds?", true)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if !ok {
		t.Error("expected forced confirmation to succeed")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
