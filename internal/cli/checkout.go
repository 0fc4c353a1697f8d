package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shop-session/internal/model"
)

// CheckoutOptions holds flags for the checkout command.
// Empty shipping flags keep the value prefilled from the profile.
type CheckoutOptions struct {
	*RootOptions

	FullName        string
	Phone           string
	Email           string
	PostalCode      string
	Address         string
	DetailedAddress string
	Notes           string

	Payment    string
	CardNumber string
	Expiry     string
	CVV        string
	CardName   string
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Check out the cart and place the order",
		Long: `Check out the cart and place the order in one step.

Shipping is prefilled from your profile; flags override it. Each step is
validated and the first failing step is reported with its field errors.

Example:
  shopctl checkout --detailed-address "Apt 4" --payment cod
  shopctl checkout --detailed-address "Apt 4" --payment card \
    --card-number 4111111111111111 --expiry 12/29 --cvv 123 --card-name "EMILY JOHNSON"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(opts.RootOptions, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				return runCheckout(ctx, opts, env, out)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.FullName, "full-name", "", "recipient name")
	f.StringVar(&opts.Phone, "phone", "", "contact phone")
	f.StringVar(&opts.Email, "email", "", "contact email")
	f.StringVar(&opts.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&opts.Address, "address", "", "street address")
	f.StringVar(&opts.DetailedAddress, "detailed-address", "", "apartment, suite, floor")
	f.StringVar(&opts.Notes, "notes", "", "delivery notes")
	f.StringVar(&opts.Payment, "payment", "card", "payment method (card|cod)")
	f.StringVar(&opts.CardNumber, "card-number", "", "card number")
	f.StringVar(&opts.Expiry, "expiry", "", "card expiry (MM/YY)")
	f.StringVar(&opts.CVV, "cvv", "", "card security code")
	f.StringVar(&opts.CardName, "card-name", "", "name on card")

	return cmd
}

func runCheckout(ctx context.Context, opts *CheckoutOptions, env *Env, out *OutputFormatter) error {
	m, err := env.Engine.BeginCheckout()
	if err != nil {
		return err
	}

	prefill, _ := m.Drafts()
	if err := m.SetShipping(opts.shipping(prefill)); err != nil {
		return err
	}
	if _, err := m.Next(); err != nil {
		return fmt.Errorf("shipping: %w", err)
	}
	out.VerboseLog("shipping accepted")

	if err := m.SetPayment(opts.payment()); err != nil {
		return err
	}
	if _, err := m.Next(); err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	out.VerboseLog("payment accepted, placing order")

	o, err := env.Engine.Commit(ctx)
	if err != nil {
		return err
	}
	return out.Success(newOrderView(o))
}

func (o *CheckoutOptions) shipping(prefill model.ShippingInfo) model.ShippingInfo {
	return model.ShippingInfo{
		FullName:        firstNonEmpty(o.FullName, prefill.FullName),
		Phone:           firstNonEmpty(o.Phone, prefill.Phone),
		Email:           firstNonEmpty(o.Email, prefill.Email),
		PostalCode:      firstNonEmpty(o.PostalCode, prefill.PostalCode),
		Address:         firstNonEmpty(o.Address, prefill.Address),
		DetailedAddress: firstNonEmpty(o.DetailedAddress, prefill.DetailedAddress),
		DeliveryNotes:   firstNonEmpty(o.Notes, prefill.DeliveryNotes),
	}
}

func (o *CheckoutOptions) payment() model.PaymentInfo {
	return model.PaymentInfo{
		PaymentMethod: paymentMethod(o.Payment),
		CardNumber:    o.CardNumber,
		ExpiryDate:    o.Expiry,
		CVV:           o.CVV,
		CardName:      o.CardName,
	}
}

// paymentMethod accepts the short flag values and the full method names.
// Anything else is passed through and rejected by payment validation.
func paymentMethod(s string) model.PaymentMethod {
	switch s {
	case "card":
		return model.PaymentCard
	case "cod":
		return model.PaymentCashOnDelivery
	default:
		return model.PaymentMethod(s)
	}
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Show the last placed order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				o := env.Engine.LastOrder()
				if o == nil {
					return out.Success(message{Message: "No order has been placed"})
				}
				return out.Success(newOrderView(o))
			})
		},
	}
}
