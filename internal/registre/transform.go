// ABOUTME: Pure transformation from the nested register schema to the flat Record
// ABOUTME: Total over any syntactically valid payload; absent structures become defaults

package registre

import (
	"strings"
)

// registrationSeparator joins the three registration sub-fields into the
// composite registration identifier.
const registrationSeparator = "-"

// Transform maps a raw extract to the flat Record. It performs no I/O, never
// fails, and unwraps every optional substructure to empty defaults. The
// result is deterministic for a given input.
func Transform(raw *RawExtract) *Record {
	rec := &Record{
		Representatives: []Representative{},
		Activities:      []Activity{},
	}

	if raw == nil {
		return rec
	}

	if company := raw.Company; company != nil {
		rec.Status = company.Status

		if id := company.Identity; id != nil {
			rec.Name = id.LegalName
			rec.TradeName = id.TradeName
			rec.Siren = id.Siren
			rec.Siret = id.Siret
			rec.LegalForm = id.LegalForm
		}

		if addr := company.Address; addr != nil {
			rec.Street = joinNonEmpty(" ", addr.Street, addr.Complement)
			rec.PostalCode = addr.PostalCode
			rec.City = addr.City
			rec.Country = addr.Country
		}

		if capital := company.Capital; capital != nil {
			rec.Capital = NormalizeDecimal(capital.Amount)
			rec.CapitalCurrency = capital.Currency
			rec.VariableCapital = capital.Variable
		}

		for _, rep := range company.Representatives {
			rec.Representatives = append(rec.Representatives, Representative{
				Role: rep.Role,
				Name: representativeName(rep),
			})
		}

		if acts := company.Activities; acts != nil {
			if acts.Principal != nil {
				rec.Activities = append(rec.Activities, Activity(*acts.Principal))
			}
			for _, a := range acts.Secondary {
				rec.Activities = append(rec.Activities, Activity(a))
			}
		}

		if reg := company.Registration; reg != nil {
			rec.RegistrationID = registrationID(reg)
			rec.RegisteredAt = reg.RegisteredAt
		}
	}

	if meta := raw.Meta; meta != nil {
		rec.CreatedAt = meta.CreatedAt
		rec.UpdatedAt = meta.UpdatedAt
	}

	return rec
}

// registrationID builds the composite register identifier from the court
// code, register type, and serial. Empty when all three sub-fields are empty.
func registrationID(reg *RawRegistration) string {
	if reg.CourtCode == "" && reg.RegisterType == "" && reg.Serial == "" {
		return ""
	}
	return reg.CourtCode + registrationSeparator + reg.RegisterType + registrationSeparator + reg.Serial
}

// representativeName assembles a display name for a representative. Corporate
// representatives carry a company name instead of personal names.
func representativeName(rep RawRepresentative) string {
	if rep.Company != "" {
		return rep.Company
	}
	return joinNonEmpty(" ", rep.FirstName, rep.LastName)
}

// NormalizeDecimal converts a locale-formatted decimal string to canonical
// form: grouping spaces are dropped and the comma separator becomes a dot.
// No numeric parsing happens here; callers own interpretation.
func NormalizeDecimal(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "") // non-breaking grouping space
	return strings.ReplaceAll(s, ",", ".")
}

// joinNonEmpty joins the non-empty parts with the separator.
func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
