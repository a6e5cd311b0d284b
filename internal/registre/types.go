// ABOUTME: Wire types for the upstream company-register extract API
// ABOUTME: Every nested structure is optional; Transform owns the defaults

package registre

// Variant selects which form of extract to fetch.
type Variant string

const (
	// VariantCurrent is the current-state extract (active facts only).
	VariantCurrent Variant = "current"
	// VariantFull is the full historical extract.
	VariantFull Variant = "full"
)

// Valid reports whether the variant is one the register understands.
func (v Variant) Valid() bool {
	return v == VariantCurrent || v == VariantFull
}

// RawExtract is the top-level payload returned by the register API.
// All substructures are optional; consumers must go through Transform.
type RawExtract struct {
	Company *RawCompany `json:"company"`
	Meta    *RawMeta    `json:"meta"`
}

// RawCompany is the nested company description.
type RawCompany struct {
	Identity        *RawIdentity        `json:"identity"`
	Address         *RawAddress         `json:"address"`
	Capital         *RawCapital         `json:"capital"`
	Representatives []RawRepresentative `json:"representatives"`
	Activities      *RawActivities      `json:"activities"`
	Registration    *RawRegistration    `json:"registration"`
	Status          string              `json:"status"`
}

// RawIdentity carries naming and identifier fields.
type RawIdentity struct {
	LegalName string `json:"legalName"`
	TradeName string `json:"tradeName"`
	Siren     string `json:"siren"`
	Siret     string `json:"siret"`
	LegalForm string `json:"legalForm"`
}

// RawAddress is the registered office address.
type RawAddress struct {
	Street     string `json:"street"`
	Complement string `json:"complement"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// RawCapital carries the share capital. Amount is a locale-formatted decimal
// string as emitted by the register (e.g. "1 234,56").
type RawCapital struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Variable bool   `json:"variable"`
}

// RawRepresentative is one member of the company's representation.
type RawRepresentative struct {
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
}

// RawActivities groups the declared activities.
type RawActivities struct {
	Principal *RawActivity  `json:"principal"`
	Secondary []RawActivity `json:"secondary"`
}

// RawActivity is a single classified activity.
type RawActivity struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// RawRegistration identifies the register entry itself.
type RawRegistration struct {
	CourtCode    string `json:"courtCode"`
	RegisterType string `json:"registerType"`
	Serial       string `json:"serial"`
	RegisteredAt string `json:"registeredAt"`
}

// RawMeta carries record timestamps.
type RawMeta struct {
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
