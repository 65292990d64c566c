package validation

import (
	"errors"
	"strings"
	"testing"
)

type endpoint struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
	Mode    string `json:"mode" validate:"omitempty,oneof=fast slow"`
	Retries int    `validate:"min=0,max=5"`
}

type wrapper struct {
	Primary endpoint `mapstructure:"primary" validate:"required"`
}

func TestValidate_Valid(t *testing.T) {
	e := endpoint{BaseURL: "https://api.example.com", Path: "/health", Mode: "fast", Retries: 2}
	if err := Validate(&e); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_FieldNames(t *testing.T) {
	tests := []struct {
		name  string
		in    endpoint
		field string
		msg   string
	}{
		{"missing url", endpoint{}, "base_url", "is required"},
		{"bad url", endpoint{BaseURL: "not a url"}, "base_url", "must be a valid URL"},
		{"relative path", endpoint{BaseURL: "http://x", Path: "health"}, "path", "must start with /"},
		{"oneof", endpoint{BaseURL: "http://x", Mode: "medium"}, "mode", "must be one of: fast slow"},
		{"max", endpoint{BaseURL: "http://x", Retries: 9}, "retries", "must be at most 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.in)
			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want Errors", err)
			}
			if !verrs.Has(tt.field) {
				t.Fatalf("Errors %v missing field %q", verrs, tt.field)
			}
			if !strings.Contains(err.Error(), tt.field+": "+tt.msg) {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.field+": "+tt.msg)
			}
		})
	}
}

func TestValidate_NestedPath(t *testing.T) {
	err := Validate(&wrapper{Primary: endpoint{BaseURL: "::"}})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error = %v", err)
	}
	if !verrs.Has("primary.base_url") {
		t.Errorf("Errors = %v, want primary.base_url", verrs)
	}
}

func TestValidate_NotAStruct(t *testing.T) {
	if err := Validate("just a string"); err == nil {
		t.Error("expected an error for a non-struct value")
	}
}

func TestErrors_Error(t *testing.T) {
	e := Errors{{Field: "a", Message: "is required"}, {Field: "b", Message: "is invalid"}}
	want := "validation failed: a: is required; b: is invalid"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if e.Has("c") {
		t.Error("Has(c) = true")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Retries":     "retries",
		"ProbeTimeout": "probe_timeout",
		"x":           "x",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
