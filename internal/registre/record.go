// ABOUTME: Flat display-ready company record produced by Transform
// ABOUTME: Fixed shape; optional fields are empty strings or empty lists, never omitted

package registre

// Representative is one entry of the company's representation.
type Representative struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Activity is a single classified activity.
type Activity struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Record is the flat company card handed to callers. It is immutable once
// produced and keeps no reference to the raw payload. Fields are always
// present in JSON so consumers can rely on a fixed shape.
type Record struct {
	Name      string `json:"name"`
	TradeName string `json:"tradeName"`
	Siren     string `json:"siren"`
	Siret     string `json:"siret"`
	LegalForm string `json:"legalForm"`
	Status    string `json:"status"`

	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`

	// RegistrationID is the composite register identifier
	// (court code, register type, serial).
	RegistrationID string `json:"registrationId"`
	RegisteredAt   string `json:"registeredAt"`

	// Capital is the share capital as a canonical decimal string
	// ("1234.56"); interpretation is left to the caller.
	Capital         string `json:"capital"`
	CapitalCurrency string `json:"capitalCurrency"`
	VariableCapital bool   `json:"variableCapital"`

	Representatives []Representative `json:"representatives"`
	Activities      []Activity       `json:"activities"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
