// Package model defines the domain types shared by the session engine:
// catalog products, cart lines, checkout drafts, orders, and the error taxonomy.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record owned by the remote service.
// The engine only ever holds copies.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

// CartLine is a product plus the selected quantity.
// Identity is Product.ID; a cart never holds two lines with the same ID.
// The JSON shape flattens the product fields next to quantity, matching
// the persisted "cart" slot.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price × quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return Amount(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are derived from the current cart lines and never stored on their own.
type Totals struct {
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// ComputeTotals folds (sum qty, sum price*qty) over lines.
// Shared by the cart store and order assembly so both derive the same total.
func ComputeTotals(lines []CartLine) Totals {
	t := Totals{TotalPrice: decimal.Zero}
	for _, l := range lines {
		t.TotalItems += l.Quantity
		t.TotalPrice = t.TotalPrice.Add(l.Subtotal())
	}
	return t
}

// ProductQuery selects a page of the catalog. An empty Query lists everything.
type ProductQuery struct {
	Skip  int
	Limit int
	Query string
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// UserAddress is the structured address kept on the remote profile.
type UserAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// User is the authenticated customer's profile.
// Phone and Address are optional; nil means the profile never had them.
type User struct {
	ID        int          `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Phone     *string      `json:"phone,omitempty"`
	Address   *UserAddress `json:"address,omitempty"`
}

// FullName joins first and last name, trimming a missing half.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Credentials is the result of a successful login.
type Credentials struct {
	User        User
	AccessToken string
}

// ProfilePatch is the partial profile sent to the remote service on commit.
type ProfilePatch struct {
	Phone   string      `json:"phone"`
	Address UserAddress `json:"address"`
}

// Apply returns a copy of u with the patch applied.
func (p ProfilePatch) Apply(u User) User {
	phone := p.Phone
	addr := p.Address
	u.Phone = &phone
	u.Address = &addr
	return u
}

// ShippingInfo is the draft collected in the shipping step.
// All fields are required except DeliveryNotes.
type ShippingInfo struct {
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PostalCode      string `json:"postalCode"`
	Address         string `json:"address"`
	DetailedAddress string `json:"detailedAddress"`
	DeliveryNotes   string `json:"deliveryNotes,omitempty"`
}

// PaymentMethod selects how the customer pays.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "credit_card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCashOnDelivery
}

// PaymentInfo is the draft collected in the payment step.
// Card fields only matter when PaymentMethod is PaymentCard.
type PaymentInfo struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CardNumber    string        `json:"cardNumber,omitempty"`
	ExpiryDate    string        `json:"expiryDate,omitempty"`
	CVV           string        `json:"cvv,omitempty"`
	CardName      string        `json:"cardName,omitempty"`
}

// WithoutCard returns a copy with every card field cleared.
func (p PaymentInfo) WithoutCard() PaymentInfo {
	return PaymentInfo{PaymentMethod: p.PaymentMethod}
}

// Order is created once per successful commit and never mutated afterwards.
type Order struct {
	OrderID  string          `json:"orderId"`
	Date     time.Time       `json:"date"`
	Items    []CartLine      `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Shipping ShippingInfo    `json:"shipping"`
	Payment  PaymentInfo     `json:"payment"`
}
