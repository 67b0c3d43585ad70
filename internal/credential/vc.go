package credential

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kcc-issuer/pkg/didjwt"
)

const (
	// TypeKnownCustomerCredential is the credential type name advertised in
	// offers and issuer metadata.
	TypeKnownCustomerCredential = "KnownCustomerCredential"

	contextCredentials = "https://www.w3.org/2018/credentials/v1"
	typeVerifiable     = "VerifiableCredential"
)

// vcPayload is the vc claim inside a VC-JWT (jwt_vc_json encoding).
type vcPayload struct {
	Context           []string        `json:"@context"`
	ID                string          `json:"id"`
	Type              []string        `json:"type"`
	Issuer            string          `json:"issuer"`
	IssuanceDate      string          `json:"issuanceDate"`
	ExpirationDate    string          `json:"expirationDate"`
	CredentialSubject vcSubject       `json:"credentialSubject"`
	CredentialSchema  SchemaRef       `json:"credentialSchema"`
	Evidence          []EvidenceEntry `json:"evidence"`
}

type vcSubject struct {
	ID                 string        `json:"id"`
	CountryOfResidence string        `json:"countryOfResidence"`
	Tier               string        `json:"tier,omitempty"`
	Jurisdiction       *Jurisdiction `json:"jurisdiction,omitempty"`
}

// SignVC constructs a Known Customer Credential for the subject and signs it
// as a compact VC-JWT with the issuer identity.
func SignVC(issuer *didjwt.Identity, subjectDID string, claims KnownCustomerClaims, expiresAt time.Time) (string, error) {
	if issuer == nil {
		return "", fmt.Errorf("issuer identity is required")
	}
	if subjectDID == "" {
		return "", fmt.Errorf("subject did is required")
	}

	now := time.Now().UTC()
	evidence := claims.Evidence
	if evidence == nil {
		evidence = []EvidenceEntry{}
	}
	vc := vcPayload{
		Context:        []string{contextCredentials},
		ID:             "urn:uuid:" + uuid.NewString(),
		Type:           []string{typeVerifiable, TypeKnownCustomerCredential},
		Issuer:         issuer.DID,
		IssuanceDate:   now.Format(time.RFC3339),
		ExpirationDate: expiresAt.UTC().Format(time.RFC3339),
		CredentialSubject: vcSubject{
			ID:                 subjectDID,
			CountryOfResidence: claims.CountryOfResidence,
			Tier:               claims.Tier,
			Jurisdiction:       claims.Jurisdiction,
		},
		CredentialSchema: claims.CredentialSchema,
		Evidence:         evidence,
	}

	// Round-trip through JSON so the vc claim is plain maps, matching what a
	// verifier sees after parsing.
	raw, err := json.Marshal(vc)
	if err != nil {
		return "", fmt.Errorf("failed to encode vc payload: %w", err)
	}
	var vcClaim map[string]any
	if err := json.Unmarshal(raw, &vcClaim); err != nil {
		return "", fmt.Errorf("failed to decode vc payload: %w", err)
	}

	return issuer.Sign(jwt.MapClaims{
		"iss": issuer.DID,
		"sub": subjectDID,
		"jti": vc.ID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": expiresAt.Unix(),
		"vc":  vcClaim,
	})
}

// ParseVC verifies a compact VC-JWT and recovers the claim set and subject.
func ParseVC(vcJwt string) (KnownCustomerClaims, string, error) {
	claims, err := didjwt.Verify(vcJwt)
	if err != nil {
		return KnownCustomerClaims{}, "", fmt.Errorf("vc jwt rejected: %w", err)
	}
	raw, err := json.Marshal(claims["vc"])
	if err != nil {
		return KnownCustomerClaims{}, "", fmt.Errorf("vc claim malformed: %w", err)
	}
	var vc vcPayload
	if err := json.Unmarshal(raw, &vc); err != nil {
		return KnownCustomerClaims{}, "", fmt.Errorf("vc claim malformed: %w", err)
	}

	parsed := KnownCustomerClaims{
		CountryOfResidence: vc.CredentialSubject.CountryOfResidence,
		Tier:               vc.CredentialSubject.Tier,
		Jurisdiction:       vc.CredentialSubject.Jurisdiction,
		CredentialSchema:   vc.CredentialSchema,
		Evidence:           vc.Evidence,
	}
	if parsed.Evidence == nil {
		parsed.Evidence = []EvidenceEntry{}
	}
	return parsed, vc.CredentialSubject.ID, nil
}
