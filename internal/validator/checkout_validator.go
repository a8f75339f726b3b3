package validator

import (
	"regexp"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipRe   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,9}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

const maxFieldLen = 255

type inputValidator struct{}

// Usecaseは interface を依存注入
func New() usecase.InputValidator {
	return &inputValidator{}
}

// 配送先フォームを検証（項目ごとのメッセージ）
func (v *inputValidator) ValidateShipping(in usecase.ShippingInfo) usecase.FieldErrors {
	errs := usecase.FieldErrors{}

	required := []struct {
		field string
		value string
		label string
	}{
		{"first_name", in.FirstName, "First name"},
		{"last_name", in.LastName, "Last name"},
		{"email", in.Email, "Email"},
		{"address", in.Address, "Address"},
		{"city", in.City, "City"},
		{"state", in.State, "State"},
		{"zip_code", in.ZipCode, "ZIP code"},
	}
	for _, r := range required {
		v := strings.TrimSpace(r.value)
		if v == "" {
			errs[r.field] = r.label + " is required"
			continue
		}
		if len(v) > maxFieldLen {
			errs[r.field] = r.label + " is too long"
		}
	}

	if _, ok := errs["email"]; !ok && !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		errs["email"] = "Email is invalid"
	}
	if _, ok := errs["zip_code"]; !ok && !zipRe.MatchString(strings.TrimSpace(in.ZipCode)) {
		errs["zip_code"] = "ZIP code is invalid"
	}

	// 任意項目
	if p := strings.TrimSpace(in.Phone); p != "" && !phoneRe.MatchString(p) {
		errs["phone"] = "Phone is invalid"
	}
	if len(strings.TrimSpace(in.Country)) > maxFieldLen {
		errs["country"] = "Country is too long"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *inputValidator) ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && len(email) <= maxFieldLen && emailRe.MatchString(email)
}
