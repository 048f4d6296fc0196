package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	regionMu      sync.RWMutex
	defaultRegion = "BD"
	registerOnce  sync.Once
	registerErr   error
)

// RegisterValidators installs the custom binding rules on gin's validator.
// region is the country assumed for numbers given without a country code.
func RegisterValidators(region string) error {
	regionMu.Lock()
	if region != "" {
		defaultRegion = strings.ToUpper(region)
	}
	regionMu.Unlock()

	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator engine")
			return
		}

		// Report fields by their JSON names
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		registerErr = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			_, err := utils.NormalizePhone(fl.Field().String(), currentRegion())
			return err == nil
		})
	})
	return registerErr
}

func currentRegion() string {
	regionMu.RLock()
	defer regionMu.RUnlock()
	return defaultRegion
}

// normalizePhone rewrites a number that already passed the phone rule into E.164
func normalizePhone(to string) string {
	if n, err := utils.NormalizePhone(to, currentRegion()); err == nil {
		return n
	}
	return to
}

// checkExpireAt enforces the minimum scheduling delay for message expiry
func checkExpireAt(cb models.Callbacks, minDelay time.Duration, now time.Time) []utils.Violation {
	if cb.ExpireAt == nil {
		return nil
	}
	if *cb.ExpireAt < now.Add(minDelay).UnixMilli() {
		return []utils.Violation{{
			Field:   "expireAt",
			Message: fmt.Sprintf("expireAt must be at least %s in the future", minDelay),
		}}
	}
	return nil
}

// bindJSON decodes the body into req and returns field violations, if any
func bindJSON(c *gin.Context, req any) []utils.Violation {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		violations := make([]utils.Violation, 0, len(verrs))
		for _, fe := range verrs {
			violations = append(violations, utils.Violation{
				Field:   fieldPath(fe),
				Message: violationMessage(fe),
			})
		}
		return violations
	}

	var typeErr *json.UnmarshalTypeError
	var sizeErr *http.MaxBytesError
	switch {
	case errors.As(err, &sizeErr):
		return []utils.Violation{{Field: "body", Message: "request body too large"}}
	case errors.As(err, &typeErr):
		return []utils.Violation{{Field: typeErr.Field, Message: fmt.Sprintf("must be of type %s", typeErr.Type)}}
	case errors.Is(err, io.EOF):
		return []utils.Violation{{Field: "body", Message: "request body is required"}}
	default:
		return []utils.Violation{{Field: "body", Message: "malformed JSON body"}}
	}
}

// fieldPath drops the struct name prefix and embedded struct names, keeping
// nested paths such as additionalDeliveryChannel[0].address
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	i := strings.Index(ns, ".")
	if i < 0 {
		return fe.Field()
	}
	return strings.TrimPrefix(ns[i+1:], "Callbacks.")
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "phone":
		return "Invalid phone number"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	case "email":
		return "Invalid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
