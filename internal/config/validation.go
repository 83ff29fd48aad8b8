package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lanrat/emsort/blockstore"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// block sizes must hold a whole number of int64 values
	_ = v.RegisterValidation("elemaligned", func(fl validator.FieldLevel) bool {
		return fl.Field().Uint()%blockstore.ElementSize == 0
	})
	return v
}

// Validate checks cfg against its struct tags and cross-field rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	s := cfg.Search
	if s.Min != 0 && s.Max != 0 && s.Max < s.Min {
		return fmt.Errorf("search.max: %d is below search.min %d", s.Max, s.Min)
	}
	if capacity := int(cfg.Sort.BlockSize / blockstore.ElementSize); s.Max > capacity {
		return fmt.Errorf("search.max: %d exceeds the block capacity %d", s.Max, capacity)
	}
	return nil
}
