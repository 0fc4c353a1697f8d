package checkout

import (
	"regexp"
	"strings"

	"shop-session/internal/model"
)

// Field names used as ValidationErrors keys. They match the JSON names of
// model.ShippingInfo and model.PaymentInfo.
const (
	FieldFullName        = "fullName"
	FieldPhone           = "phone"
	FieldEmail           = "email"
	FieldPostalCode      = "postalCode"
	FieldAddress         = "address"
	FieldDetailedAddress = "detailedAddress"

	FieldPaymentMethod = "paymentMethod"
	FieldCardNumber    = "cardNumber"
	FieldExpiryDate    = "expiryDate"
	FieldCVV           = "cvv"
	FieldCardName      = "cardName"
)

const minPhoneDigits = 10

var (
	phonePattern  = regexp.MustCompile(`^\+?[\d\s-]+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3}$`)
)

// ValidateShipping checks every required shipping field.
// Values are trimmed before checking; the map is empty when the form is valid.
func ValidateShipping(s model.ShippingInfo) model.ValidationErrors {
	errs := model.ValidationErrors{}

	required(errs, FieldFullName, s.FullName, "Name is required")
	required(errs, FieldPostalCode, s.PostalCode, "Postal code is required")
	required(errs, FieldAddress, s.Address, "Address is required")
	required(errs, FieldDetailedAddress, s.DetailedAddress, "Detailed address is required")

	if phone := strings.TrimSpace(s.Phone); phone == "" {
		errs[FieldPhone] = "Phone is required"
	} else if !validPhone(phone) {
		errs[FieldPhone] = "Invalid phone number"
	}

	if email := strings.TrimSpace(s.Email); email == "" {
		errs[FieldEmail] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		errs[FieldEmail] = "Invalid email address"
	}

	return errs
}

// ValidatePayment checks the payment form. Card fields are only checked for
// card payments; cash on delivery ignores whatever card data is present.
func ValidatePayment(p model.PaymentInfo) model.ValidationErrors {
	errs := model.ValidationErrors{}

	if !p.PaymentMethod.Valid() {
		errs[FieldPaymentMethod] = "Select a payment method"
		return errs
	}
	if p.PaymentMethod != model.PaymentCard {
		return errs
	}

	if raw := strings.TrimSpace(p.CardNumber); raw == "" {
		errs[FieldCardNumber] = "Card number is required"
	} else if len(digitsOnly(raw)) != cardDigits {
		errs[FieldCardNumber] = "Card number must be 16 digits"
	}

	if expiry := strings.TrimSpace(p.ExpiryDate); expiry == "" {
		errs[FieldExpiryDate] = "Expiry date is required"
	} else if !expiryPattern.MatchString(expiry) {
		errs[FieldExpiryDate] = "Invalid format (MM/YY)"
	}

	if cvv := strings.TrimSpace(p.CVV); cvv == "" {
		errs[FieldCVV] = "CVV is required"
	} else if !cvvPattern.MatchString(cvv) {
		errs[FieldCVV] = "CVV must be 3 digits"
	}

	required(errs, FieldCardName, p.CardName, "Cardholder name is required")

	return errs
}

func required(errs model.ValidationErrors, field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = msg
	}
}

// validPhone accepts digits, spaces and hyphens with an optional leading +,
// and at least ten digits overall.
func validPhone(phone string) bool {
	return phonePattern.MatchString(phone) && len(digitsOnly(phone)) >= minPhoneDigits
}
