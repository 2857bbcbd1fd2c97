package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := validator.New()

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldErr := range validationErrors {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed on '%s' (value: %v)",
				fieldErr.Namespace(), fieldErr.Tag(), fieldErr.Value()))
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(messages, "; "))
	}
	return fmt.Errorf("config validation failed: %w", err)
}
