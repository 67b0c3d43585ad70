// Package credential holds the Known Customer Credential claim set and the
// VC-JWT assembly around it. The model is pure shape with defaulting; schema
// conformance is enforced by the signing step, not here.
package credential

// SchemaRef points at the JSON schema the credential conforms to.
type SchemaRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Jurisdiction scopes the KYC result to a legal jurisdiction.
type Jurisdiction struct {
	Country string `json:"country"`
}

// EvidenceEntry documents one verification method and the checks performed
// under it.
type EvidenceEntry struct {
	Kind   string   `json:"kind"`
	Checks []string `json:"checks"`
}

// KnownCustomerClaims is the KCC claim set.
// CountryOfResidence and CredentialSchema are always present; Tier and
// Jurisdiction are optional; Evidence may be empty but is never nil.
type KnownCustomerClaims struct {
	CountryOfResidence string          `json:"countryOfResidence"`
	Tier               string          `json:"tier,omitempty"`
	Jurisdiction       *Jurisdiction   `json:"jurisdiction,omitempty"`
	CredentialSchema   SchemaRef       `json:"credentialSchema"`
	Evidence           []EvidenceEntry `json:"evidence"`
}

// Option tunes optional KCC fields.
type Option func(*KnownCustomerClaims)

// WithTier sets the risk/KYC tier label.
func WithTier(tier string) Option {
	return func(c *KnownCustomerClaims) { c.Tier = tier }
}

// WithJurisdiction sets the jurisdiction.
func WithJurisdiction(country string) Option {
	return func(c *KnownCustomerClaims) { c.Jurisdiction = &Jurisdiction{Country: country} }
}

// WithEvidence sets the evidence entries.
func WithEvidence(evidence ...EvidenceEntry) Option {
	return func(c *KnownCustomerClaims) { c.Evidence = evidence }
}

// NewKnownCustomer builds a claim set. Tier and jurisdiction default to
// absent; evidence defaults to an empty sequence.
func NewKnownCustomer(countryOfResidence string, schema SchemaRef, opts ...Option) KnownCustomerClaims {
	claims := KnownCustomerClaims{
		CountryOfResidence: countryOfResidence,
		CredentialSchema:   schema,
		Evidence:           []EvidenceEntry{},
	}
	for _, opt := range opts {
		opt(&claims)
	}
	if claims.Evidence == nil {
		claims.Evidence = []EvidenceEntry{}
	}
	return claims
}

// DefaultSchema is the hosted KCC JSON schema.
var DefaultSchema = SchemaRef{
	ID:   "https://vc.schemas.host/kcc.schema.json",
	Type: "JsonSchema",
}

// DefaultKnownCustomer is the fixture claim set used until the completed IDV
// record supplies real values.
func DefaultKnownCustomer() KnownCustomerClaims {
	return NewKnownCustomer("US", DefaultSchema,
		WithTier("Gold"),
		WithJurisdiction("US"),
		WithEvidence(
			EvidenceEntry{Kind: "document_verification", Checks: []string{"passport", "utility_bill"}},
			EvidenceEntry{Kind: "sanction_screening", Checks: []string{"PEP"}},
		),
	)
}
