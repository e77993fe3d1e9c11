package service

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/shopspring/decimal"
)

const (
	minPasswordLen     = 6
	maxProductNameLen  = 200
	maxDescriptionLen  = 5000
	maxFullNameLen     = 100
	maxAvatarURLLength = 2048
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
)

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return invalid("password", "must be at least 6 characters")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username", "is required")
	}
	if !usernameRe.MatchString(username) {
		return invalid("username", "must be 3-30 letters, digits, dots, dashes or underscores")
	}
	return nil
}

func validatePhone(phone *string) error {
	if phone != nil && *phone != "" && !phoneRe.MatchString(*phone) {
		return invalid("phone", "is not a valid phone number")
	}
	return nil
}

func validateURL(field string, raw *string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	if len(*raw) > maxAvatarURLLength {
		return invalid(field, "is too long")
	}
	u, err := url.ParseRequestURI(*raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(field, "must be an http(s) URL")
	}
	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("product_name", "is required")
	}
	if utf8.RuneCountInString(name) > maxProductNameLen {
		return invalid("product_name", "is too long")
	}
	return nil
}

func validateDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > maxDescriptionLen {
		return invalid("description", "is too long")
	}
	return nil
}

func validateUnitPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("unit_price", "must be greater than zero")
	}
	if price.Exponent() < -2 && !price.Equal(price.Round(2)) {
		return invalid("unit_price", "must have at most two decimal places")
	}
	return nil
}

func validateMOQ(moq int) error {
	if moq <= 0 {
		return invalid("moq", "must be a positive integer")
	}
	return nil
}

func validateQuantity(q int) error {
	if q <= 0 {
		return invalid("quantity", "must be a positive integer")
	}
	if q > models.MaxPledgeQuantity {
		return invalid("quantity", fmt.Sprintf("must not exceed %d", models.MaxPledgeQuantity))
	}
	return nil
}

// emptyToNil turns blank optional strings into NULLs.
func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
