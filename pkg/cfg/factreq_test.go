package cfg

import (
	"reflect"
	"testing"
)

func TestParseFactNameRequest(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantSpecific string
		wantExcluded []string
		wantErr      ErrorCode
	}{
		{name: "empty", input: ""},
		{name: "only separators", input: " @ @"},
		{name: "specific", input: "a", wantSpecific: "a"},
		{name: "exclusion", input: "!a", wantExcluded: []string{"a"}},
		{name: "mixed", input: " !b @ stdscat@!c ", wantSpecific: "stdscat", wantExcluded: []string{"b", "c"}},
		{name: "duplicate exclusion", input: "!a@!b@!a", wantExcluded: []string{"a", "b"}},
		{name: "space after bang", input: "! a", wantExcluded: []string{"a"}},
		{name: "self exclusion", input: "a@!a", wantErr: ErrCodeConflict},
		{name: "self exclusion reversed", input: "!a@a", wantErr: ErrCodeConflict},
		{name: "two required", input: "a@b", wantErr: ErrCodeConflict},
		{name: "bad character", input: "a.b", wantErr: ErrCodeSyntax},
		{name: "lone bang", input: "!", wantErr: ErrCodeSyntax},
		{name: "inner space", input: "my fact", wantErr: ErrCodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseFactNameRequest(tt.input)
			if tt.wantErr != "" {
				if CodeOf(err) != tt.wantErr {
					t.Fatalf("expected %s error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.SpecificRequest() != tt.wantSpecific {
				t.Errorf("specific = %q, want %q", req.SpecificRequest(), tt.wantSpecific)
			}
			if req.HasSpecificRequest() != (tt.wantSpecific != "") {
				t.Errorf("HasSpecificRequest = %v", req.HasSpecificRequest())
			}
			if got := req.Excluded(); len(got) != 0 || len(tt.wantExcluded) != 0 {
				if !reflect.DeepEqual(got, tt.wantExcluded) {
					t.Errorf("excluded = %v, want %v", got, tt.wantExcluded)
				}
			}
			if req.IsEmpty() != (tt.wantSpecific == "" && len(tt.wantExcluded) == 0) {
				t.Errorf("IsEmpty = %v", req.IsEmpty())
			}
		})
	}
}

func TestFactNameRequest_StringIsCanonical(t *testing.T) {
	for _, in := range []string{"", "a", "!a", "x@!y@!z", " !z@x @ !y", "!a@!b@!a"} {
		req, err := ParseFactNameRequest(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		again, err := ParseFactNameRequest(req.String())
		if err != nil {
			t.Fatalf("%q: re-parse of %q failed: %v", in, req.String(), err)
		}
		if !again.Equal(req) || again.String() != req.String() {
			t.Errorf("%q: not idempotent (%q vs %q)", in, req.String(), again.String())
		}
	}
}

func TestFactNameRequest_Equal(t *testing.T) {
	a, _ := ParseFactNameRequest("x@!y@!z")
	b, _ := ParseFactNameRequest("!z@!y@x")
	c, _ := ParseFactNameRequest("x@!y")
	if !a.Equal(b) {
		t.Error("exclusion order must not matter")
	}
	if a.Equal(c) {
		t.Error("different exclusion sets must differ")
	}
}

func TestFactNameRequest_Derivations(t *testing.T) {
	req, err := ParseFactNameRequest("stdscat@!bragg")
	if err != nil {
		t.Fatal(err)
	}

	more, err := req.WithAdditionalExclude("sans")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if more.String() != "stdscat@!bragg@!sans" {
		t.Errorf("got %q", more.String())
	}
	if req.String() != "stdscat@!bragg" {
		t.Errorf("receiver was modified: %q", req.String())
	}

	same, err := req.WithAdditionalExclude("bragg")
	if err != nil || !same.Equal(req) {
		t.Errorf("re-excluding an excluded name: %v, %v", same, err)
	}

	if _, err := req.WithAdditionalExclude("stdscat"); CodeOf(err) != ErrCodeConflict {
		t.Errorf("excluding the specific request: expected conflict, got %v", err)
	}
	if _, err := req.WithAdditionalExclude("bad name"); CodeOf(err) != ErrCodeSyntax {
		t.Errorf("expected syntax error, got %v", err)
	}

	open := req.WithNoSpecificRequest()
	if open.HasSpecificRequest() || !open.Excludes("bragg") || open.String() != "!bragg" {
		t.Errorf("WithNoSpecificRequest = %q", open.String())
	}
}
