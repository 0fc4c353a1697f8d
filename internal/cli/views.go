package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"shop-session/internal/checkout"
	"shop-session/internal/model"
)

// userView is the whoami/login payload.
type userView struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

func (v userView) String() string {
	if !v.Authenticated || v.User == nil {
		return "Not logged in"
	}
	return fmt.Sprintf("Logged in as %s (%s, id %d)", v.User.Username, v.User.FullName(), v.User.ID)
}

// productsView is one catalog page.
type productsView struct {
	*model.ProductPage
}

func (v productsView) String() string {
	if len(v.Products) == 0 {
		return "No products found"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tSTOCK")
	for _, p := range v.Products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", p.ID, p.Title, model.FormatAmount(model.Amount(p.Price)), p.Stock)
	}
	tw.Flush()
	fmt.Fprintf(&b, "Showing %d-%d of %d", v.Skip+1, v.Skip+len(v.Products), v.Total)
	return b.String()
}

// cartView is the cart plus totals.
type cartView struct {
	Items      []model.CartLine `json:"items"`
	TotalItems int              `json:"totalItems"`
	TotalPrice string           `json:"totalPrice"`
}

func newCartView(lines []model.CartLine, t model.Totals) cartView {
	return cartView{
		Items:      lines,
		TotalItems: t.TotalItems,
		TotalPrice: model.FormatAmount(t.TotalPrice),
	}
}

func (v cartView) String() string {
	if len(v.Items) == 0 {
		return "Your cart is empty"
	}
	var b strings.Builder
	writeLines(&b, v.Items)
	fmt.Fprintf(&b, "Items: %d  Total: $%s", v.TotalItems, v.TotalPrice)
	return b.String()
}

func writeLines(b *strings.Builder, lines []model.CartLine) {
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", l.ID, l.Title, l.Quantity, model.FormatAmount(l.Subtotal()))
	}
	tw.Flush()
}

// orderView is a placed order with the card masked.
type orderView struct {
	OrderID  string             `json:"orderId"`
	Date     time.Time          `json:"date"`
	Items    []model.CartLine   `json:"items"`
	Total    string             `json:"total"`
	Shipping model.ShippingInfo `json:"shipping"`
	Payment  model.PaymentInfo  `json:"payment"`
}

func newOrderView(o *model.Order) orderView {
	p := o.Payment
	p.CVV = ""
	if p.CardNumber != "" {
		p.CardNumber = checkout.MaskCardNumber(p.CardNumber)
	}
	return orderView{
		OrderID:  o.OrderID,
		Date:     o.Date,
		Items:    o.Items,
		Total:    model.FormatAmount(o.Total),
		Shipping: o.Shipping,
		Payment:  p,
	}
}

func (v orderView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s placed %s\n", v.OrderID, v.Date.Format("2006-01-02 15:04"))
	writeLines(&b, v.Items)
	fmt.Fprintf(&b, "Total: $%s\n", v.Total)
	fmt.Fprintf(&b, "Ship to: %s, %s %s (%s)\n",
		v.Shipping.FullName, v.Shipping.Address, v.Shipping.DetailedAddress, v.Shipping.PostalCode)
	if v.Payment.PaymentMethod == model.PaymentCashOnDelivery {
		b.WriteString("Payment: cash on delivery")
	} else {
		fmt.Fprintf(&b, "Payment: card %s", v.Payment.CardNumber)
	}
	return b.String()
}

// message is a plain confirmation.
type message struct {
	Message string `json:"message"`
}

func (m message) String() string { return m.Message }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
