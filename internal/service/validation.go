package service

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

// ValidationError reports malformed or missing input. Reason is safe to show
// to the client as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

const (
	minPasswordLen    = 6
	maxPasswordLen    = 128
	maxEmailLen       = 254
	minUsernameLen    = 3
	maxUsernameLen    = 15
	minPhoneLen       = 4
	maxPhoneLen       = 15
	maxDescriptionLen = 250
	maxPlatformLen    = 15
	maxProductNameLen = 200
	maxCodeLen        = 40
	maxURLLen         = 2048
	maxAddressLen     = 255
	maxCountryLen     = 64

	maxAmount        = model.Cents(1_000_000_00)
	maxStockQuantity = 1_000_000
)

var (
	usernamePattern     = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	productNamePattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	internalCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// normalizeEmail trims, applies NFC and lower-cases the whole address, then
// checks it is a bare addr-spec with a dotted domain.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
	if email == "" {
		return "", invalid("email is required")
	}
	if len(email) > maxEmailLen {
		return "", invalid("email is too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid("invalid email address")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", invalid("invalid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen {
		return invalid("password is too short")
	}
	if n > maxPasswordLen {
		return invalid("password is too long")
	}

	var upper, lower, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case !isASCIIAlnum(r):
			symbol = true
		}
	}
	if !upper || !lower || !symbol {
		return invalid("password needs at least 6 characters, 1 uppercase letter, 1 lowercase letter and 1 symbol")
	}
	return nil
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username is required")
	}
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen {
		return invalid("username is too short")
	}
	if n > maxUsernameLen {
		return invalid("username is too long")
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username can only contain letters, numbers and _ (underscore)")
	}
	return nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return invalid("phone number is required")
	}
	if n := utf8.RuneCountInString(phone); n < minPhoneLen || n > maxPhoneLen {
		return invalid("invalid phone number")
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > maxURLLen {
		return invalid(field + " is too long")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("invalid " + field)
	}
	return nil
}

func validateProfilePatch(p *model.ProfilePatch) error {
	if p.Empty() {
		return invalid("no changes provided")
	}
	if p.Username != nil {
		*p.Username = strings.TrimSpace(*p.Username)
		if err := validateUsername(*p.Username); err != nil {
			return err
		}
	}
	if p.PhoneNumber != nil {
		*p.PhoneNumber = strings.TrimSpace(*p.PhoneNumber)
		if err := validatePhone(*p.PhoneNumber); err != nil {
			return err
		}
	}
	if p.AvatarURL != nil {
		*p.AvatarURL = strings.TrimSpace(*p.AvatarURL)
		if err := validateURL(*p.AvatarURL, "avatar url"); err != nil {
			return err
		}
	}
	if p.Address != nil && utf8.RuneCountInString(*p.Address) > maxAddressLen {
		return invalid("address is too long")
	}
	if p.Country != nil && utf8.RuneCountInString(*p.Country) > maxCountryLen {
		return invalid("country is too long")
	}
	return nil
}

func validateProductName(name string) error {
	if name == "" {
		return invalid("product name is required")
	}
	if len(name) > maxProductNameLen {
		return invalid("product name is too long")
	}
	if !productNamePattern.MatchString(name) {
		return invalid("product name can't have symbols or spaces")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return invalid("description can be at most 250 characters")
	}
	return nil
}

func validateAmount(amount model.Cents, field string) error {
	if amount < 0 || amount > maxAmount {
		return invalid("invalid product " + field)
	}
	return nil
}

func validatePlatform(platform string) error {
	if utf8.RuneCountInString(platform) > maxPlatformLen {
		return invalid("platform name is too long")
	}
	return nil
}

func validateInternalCode(code string) error {
	if code == "" {
		return invalid("internal code can't be blank")
	}
	if len(code) > maxCodeLen {
		return invalid("internal code is too long")
	}
	if !internalCodePattern.MatchString(code) {
		return invalid("internal code can only contain letters, numbers, - and _")
	}
	return nil
}

func validateStock(qty int) error {
	if qty < 0 {
		return invalid("stock quantity can't be negative")
	}
	if qty > maxStockQuantity {
		return invalid("stock quantity is too large")
	}
	return nil
}

// normalizeCreateProduct trims the request in place and validates every field.
func normalizeCreateProduct(req *model.CreateProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Platform = strings.TrimSpace(req.Platform)
	req.ImgURL = strings.TrimSpace(req.ImgURL)
	req.InternalCode = strings.TrimSpace(req.InternalCode)

	if err := validateProductName(req.Name); err != nil {
		return err
	}
	if err := validateDescription(req.Description); err != nil {
		return err
	}
	if err := validateAmount(req.Price, "price"); err != nil {
		return err
	}
	if err := validateAmount(req.Cost, "cost"); err != nil {
		return err
	}
	if err := validatePlatform(req.Platform); err != nil {
		return err
	}
	if err := validateURL(req.ImgURL, "image url"); err != nil {
		return err
	}
	if req.InternalCode != "" {
		if err := validateInternalCode(req.InternalCode); err != nil {
			return err
		}
	}
	return validateStock(req.StockQuantity)
}

// normalizeProductPatch trims and validates only the supplied fields.
func normalizeProductPatch(p *model.ProductPatch) error {
	if p.Empty() {
		return invalid("no changes provided")
	}
	if p.Name != nil {
		*p.Name = strings.TrimSpace(*p.Name)
		if err := validateProductName(*p.Name); err != nil {
			return err
		}
	}
	if p.Description != nil {
		*p.Description = strings.TrimSpace(*p.Description)
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := validateAmount(*p.Price, "price"); err != nil {
			return err
		}
	}
	if p.Cost != nil {
		if err := validateAmount(*p.Cost, "cost"); err != nil {
			return err
		}
	}
	if p.Platform != nil {
		*p.Platform = strings.TrimSpace(*p.Platform)
		if err := validatePlatform(*p.Platform); err != nil {
			return err
		}
	}
	if p.ImgURL != nil {
		*p.ImgURL = strings.TrimSpace(*p.ImgURL)
		if err := validateURL(*p.ImgURL, "image url"); err != nil {
			return err
		}
	}
	if p.InternalCode != nil {
		*p.InternalCode = strings.TrimSpace(*p.InternalCode)
		if err := validateInternalCode(*p.InternalCode); err != nil {
			return err
		}
	}
	if p.StockQuantity != nil {
		if err := validateStock(*p.StockQuantity); err != nil {
			return err
		}
	}
	return nil
}
