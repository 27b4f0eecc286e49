package domain

// LineRequest names a catalog product and how many units to buy. Prices are
// always read from the catalog.
type LineRequest struct {
	ProductID   int64  `json:"_id" validate:"gt=0"`
	VariationID string `json:"selectedVariation,omitempty"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
}

// OrderRequest is what the storefront submits to start a checkout.
type OrderRequest struct {
	Items           []LineRequest
	ShippingAddress *ShippingAddress
	Contact         Contact
	COD             bool
	// SessionID is the storefront session whose cart is cleared once the
	// checkout is confirmed. Optional.
	SessionID string
	// ClientAmount is the client's total in minor units. It is only compared
	// against the computed total.
	ClientAmount int64
}

// GatewayOrder is the order handle returned by the payment gateway.
type GatewayOrder struct {
	ID       string            `json:"id"`
	Entity   string            `json:"entity,omitempty"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CheckoutResult is returned for both payment paths. Options is nil for COD.
type CheckoutResult struct {
	CheckoutID string           `json:"checkoutId"`
	Order      GatewayOrder     `json:"order"`
	Totals     Totals           `json:"totals"`
	COD        bool             `json:"cod"`
	Status     string           `json:"status"`
	Options    *CheckoutOptions `json:"checkout,omitempty"`
}

// CheckoutOptions configure the gateway's payment sheet for UPI only.
type CheckoutOptions struct {
	Key         string        `json:"key"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OrderID     string        `json:"order_id"`
	Prefill     Prefill       `json:"prefill"`
	Theme       Theme         `json:"theme"`
	Config      DisplayConfig `json:"config"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Method  string `json:"method"`
}

type Theme struct {
	Color string `json:"color"`
}

type DisplayConfig struct {
	Display Display `json:"display"`
}

type Display struct {
	Blocks      map[string]Block   `json:"blocks"`
	Sequence    []string           `json:"sequence"`
	Preferences DisplayPreferences `json:"preferences"`
}

type Block struct {
	Name        string       `json:"name"`
	Instruments []Instrument `json:"instruments"`
}

type Instrument struct {
	Method string   `json:"method"`
	Flow   string   `json:"flow"`
	Apps   []string `json:"apps"`
}

type DisplayPreferences struct {
	ShowDefaultBlocks bool `json:"show_default_blocks"`
}

var UPIApps = []string{"google_pay", "phonepe", "paytm", "bhim"}

// UPIOnlyConfig shows a single block offering UPI intent flow.
func UPIOnlyConfig() DisplayConfig {
	apps := make([]string, len(UPIApps))
	copy(apps, UPIApps)
	return DisplayConfig{
		Display: Display{
			Blocks: map[string]Block{
				"banks": {
					Name:        "Pay using UPI",
					Instruments: []Instrument{{Method: "upi", Flow: "intent", Apps: apps}},
				},
			},
			Sequence:    []string{"block.banks"},
			Preferences: DisplayPreferences{ShowDefaultBlocks: false},
		},
	}
}
