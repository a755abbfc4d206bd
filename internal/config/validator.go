package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

func newValidator() (*validator.Validate, error) {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("langtag", isLanguageTag); err != nil {
		return nil, fmt.Errorf("failed to register langtag validation: %w", err)
	}

	return validate, nil
}

func isLanguageTag(fl validator.FieldLevel) bool {
	_, err := language.Parse(fl.Field().String())
	return err == nil
}

// Validate checks field constraints and cross-field references such as the
// default region existing in the region table.
func Validate(cfg *Config) error {
	validate, err := newValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Research.DefaultLimit > cfg.Research.MaxLimit {
		return fmt.Errorf("invalid config: research.default_limit %d exceeds research.max_limit %d",
			cfg.Research.DefaultLimit, cfg.Research.MaxLimit)
	}

	catalog, err := NewCatalog(cfg.Regions, cfg.Languages)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := catalog.Region(cfg.Research.DefaultRegion); !ok {
		return fmt.Errorf("invalid config: default region %q is not in the region table", cfg.Research.DefaultRegion)
	}
	if _, ok := catalog.Language(cfg.Research.DefaultLanguage); !ok {
		return fmt.Errorf("invalid config: default language %q is not in the language table", cfg.Research.DefaultLanguage)
	}

	return nil
}
