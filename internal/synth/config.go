package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config controls one generation run. Chances are percentages in [0, 100].
type Config struct {
	SampleSize       int     `json:"sample_size" yaml:"sample_size" validate:"gt=0"`
	LocalityWeighted bool    `json:"locality_weighted" yaml:"locality_weighted"`
	NameWeighted     bool    `json:"name_weighted" yaml:"name_weighted"`
	FemaleChance     float64 `json:"female_chance" yaml:"female_chance" validate:"min=0,max=100"`
	SecondNameChance float64 `json:"second_name_chance" yaml:"second_name_chance" validate:"min=0,max=100"`
	BirthYearFrom    int     `json:"birth_year_from" yaml:"birth_year_from" validate:"ltefield=BirthYearTo"`
	BirthYearTo      int     `json:"birth_year_to" yaml:"birth_year_to"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SampleSize:       100,
		LocalityWeighted: true,
		NameWeighted:     true,
		FemaleChance:     50,
		SecondNameChance: 30,
		BirthYearFrom:    1950,
		BirthYearTo:      2005,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must be between 0 and 100, got %v", fe.Field(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("%s (%v) must not be after %s", fe.Field(), fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
