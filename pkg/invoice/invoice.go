// Package invoice defines the normalized invoice record and the result
// shapes exchanged across the automation boundary. The Field struct is the
// sole input contract for every fill workflow; FillResult is the sole output
// contract returned to the hosting application.
package invoice

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SystemCategory classifies a target system.
type SystemCategory string

const (
	CategoryERP       SystemCategory = "erp"
	CategoryReimburse SystemCategory = "reimburse"
	CategoryTax       SystemCategory = "tax"
	CategoryCustom    SystemCategory = "custom"
)

// LoginProtocol selects the login strategy for a target system.
type LoginProtocol string

const (
	// ProtocolForm is a generic login form whose markup is not controlled by
	// us; field selectors are probed from an ordered candidate list.
	ProtocolForm LoginProtocol = "form"

	// ProtocolCAS is a CAS single sign-on page with a stable schema.
	ProtocolCAS LoginProtocol = "cas"

	// ProtocolSSO is a non-CAS SSO page with a stable schema.
	ProtocolSSO LoginProtocol = "sso"
)

// SystemConfig is the static descriptor for one target system. Descriptors
// are loaded once at startup and never mutated afterwards.
type SystemConfig struct {
	ID            string         `yaml:"id" json:"id"`
	Name          string         `yaml:"name" json:"name"`
	LoginURL      string         `yaml:"login_url" json:"loginUrl"`
	Category      SystemCategory `yaml:"category" json:"type"`
	LoginProtocol LoginProtocol  `yaml:"login_protocol" json:"loginStrategy"`
}

// Item is one line item on an invoice.
type Item struct {
	Name          string  `json:"name" validate:"required"`
	Specification string  `json:"specification"`
	Unit          string  `json:"unit"`
	Quantity      float64 `json:"quantity" validate:"gte=0"`
	UnitPrice     float64 `json:"unitPrice" validate:"gte=0"`
	Amount        float64 `json:"amount"`
	TaxRate       string  `json:"taxRate"`
	Tax           float64 `json:"tax"`
}

// Field is a normalized invoice to be entered into a target system.
type Field struct {
	InvoiceCode   string  `json:"invoiceCode" validate:"required"`
	InvoiceNumber string  `json:"invoiceNumber" validate:"required"`
	InvoiceDate   string  `json:"invoiceDate" validate:"required"`
	CheckCode     string  `json:"checkCode"`
	BuyerName     string  `json:"buyerName"`
	BuyerTaxID    string  `json:"buyerTaxId"`
	SellerName    string  `json:"sellerName"`
	SellerTaxID   string  `json:"sellerTaxId"`
	TotalAmount   float64 `json:"totalAmount"`
	TaxAmount     float64 `json:"taxAmount"`
	TotalWithTax  float64 `json:"totalWithTax"`
	InvoiceType   string  `json:"invoiceType"`
	Items         []Item  `json:"items" validate:"required,min=1,dive"`
	Confidence    float64 `json:"confidence"`
}

// FillResult is the structured outcome of one fill attempt. Screenshot is
// populated whenever the automation got far enough to open the target page,
// on success and failure alike.
type FillResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
	DraftID    string `json:"draftId,omitempty"`
	Detail     string `json:"error,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the invoice carries the minimum set of fields every
// workflow depends on. Called by the gateway before any navigation happens.
func (f *Field) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}
	return nil
}
