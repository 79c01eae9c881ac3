package handler

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	yearMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
)

// SetupValidator registers the custom binding tags and reports fields by their json names
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	validators := map[string]validator.Func{
		"date": func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		},
		"yearmonth": func(fl validator.FieldLevel) bool {
			return yearMonthPattern.MatchString(fl.Field().String())
		},
		"period": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return yearMonthPattern.MatchString(s) || yearPattern.MatchString(s)
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
