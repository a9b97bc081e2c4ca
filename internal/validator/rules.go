package validator

import (
	"log"
	"net/url"
	"regexp"

	"reviewflow/internal/models"

	"github.com/go-playground/validator/v10"
)

// slugPattern: lowercase words joined by single hyphens, as used in /review/:slug
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// registerCustomRules регистрирует кастомные правила в экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правила приложение стартовать не должно
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("slug", validateSlug)
	mustRegister("actor-role", validateActorRole)
	mustRegister("store-threshold", validateStoreThreshold)
	mustRegister("redirect-threshold", validateRedirectThreshold)

	// "" clears an optional field on update
	mustRegister("http-url-or-empty", validateHTTPURLOrEmpty)
	mustRegister("email-or-empty", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || v.Var(value, "email") == nil
	})
}

func validateSlug(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустое значение проверяет 'required'
	}
	return len(value) <= 128 && slugPattern.MatchString(value)
}

func validateActorRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ActorRole(value).Valid()
}

// 0 disables storing.
func validateStoreThreshold(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 0 && n <= 5
}

// 6 disables redirecting.
func validateRedirectThreshold(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 1 && n <= 6
}

func validateHTTPURLOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
