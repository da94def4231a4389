package validator

import (
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	emailMinLength = 3
	emailMaxLength = 254
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

func RegisterGinValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := Register(v); err != nil {
			log.Fatalf("register validators failed: %s", err)
		}
	}
}

// Register installs json tag naming and the custom resetemail/otpcode tags.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("resetemail", resetEmailValidator); err != nil {
		return err
	}

	return v.RegisterValidation("otpcode", otpCodeValidator)
}

var resetEmailValidator validator.Func = func(fl validator.FieldLevel) bool {
	email := strings.TrimSpace(fl.Field().String())
	if len(email) < emailMinLength || len(email) > emailMaxLength {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

var otpCodeValidator validator.Func = func(fl validator.FieldLevel) bool {
	return otpCodePattern.MatchString(fl.Field().String())
}
