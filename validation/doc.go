// Package validation checks configuration structs against `validate`
// struct tags using go-playground/validator.
//
//	type Config struct {
//	    BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
//	}
//	if err := validation.Validate(&cfg); err != nil {
//	    // err is validation.Errors: "validation failed: base_url: must be a valid URL"
//	}
package validation
