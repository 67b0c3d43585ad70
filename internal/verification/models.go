package verification

// GrantTypePreAuthorizedCode is the only grant the token endpoint accepts.
const GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"

// ClientMetadata describes the requesting party inside a SIOPv2 auth request.
type ClientMetadata struct {
	SubjectSyntaxTypesSupported string `json:"subject_syntax_types_supported"`
}

// AuthRequestPayload is the SIOPv2 Authorization Request embedded in the
// signed request JWT (JAR).
type AuthRequestPayload struct {
	ClientID       string         `json:"client_id"`
	Scope          string         `json:"scope"`
	ResponseType   string         `json:"response_type"`
	ResponseURI    string         `json:"response_uri"`
	ResponseMode   string         `json:"response_mode"`
	Nonce          string         `json:"nonce"`
	ClientMetadata ClientMetadata `json:"client_metadata"`
}

// PreAuthorizedCodeGrant carries the single-use code inside a credential offer.
type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode string `json:"pre-authorized_code"`
}

// OfferGrants is the grants object of a credential offer.
type OfferGrants struct {
	PreAuthorizedCode PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code"`
}

// CredentialOffer is handed to the wallet after a valid SIOPv2 response.
type CredentialOffer struct {
	CredentialIssuer           string      `json:"credential_issuer"`
	CredentialConfigurationIDs []string    `json:"credential_configuration_ids"`
	Grants                     OfferGrants `json:"grants"`
}

// IDVRequest bundles the credential offer with the external IDV vendor form
// the wallet is handed to.
type IDVRequest struct {
	CredentialOffer CredentialOffer `json:"credential_offer"`
	URL             string          `json:"url"`
}

// TokenRequest is the OID4VCI token endpoint input.
type TokenRequest struct {
	GrantType         string `json:"grant_type"`
	ClientID          string `json:"client_id"`
	PreAuthorizedCode string `json:"pre-authorized_code"`
}

// TokenResponse is the OID4VCI token endpoint output.
type TokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int64  `json:"expires_in"`
	CNonce          string `json:"c_nonce"`
	CNonceExpiresIn int64  `json:"c_nonce_expires_in"`
}

// Proof is the proof-of-possession object of a credential request.
type Proof struct {
	ProofType string `json:"proof_type,omitempty"`
	Jwt       string `json:"jwt"`
}

// CredentialRequest is the OID4VCI credential endpoint input.
type CredentialRequest struct {
	Format string `json:"format,omitempty"`
	Proof  Proof  `json:"proof"`
}

// CredentialResponse carries the issued credential back to the wallet.
type CredentialResponse struct {
	Credential string `json:"credential"`
}

// ProofTypesSupported advertises accepted proof JWT algorithms.
type ProofTypesSupported struct {
	Jwt struct {
		ProofSigningAlgValuesSupported []string `json:"proof_signing_alg_values_supported"`
	} `json:"jwt"`
}

// CredentialConfiguration describes one issuable credential type.
type CredentialConfiguration struct {
	Format                               string              `json:"format"`
	CryptographicBindingMethodsSupported []string            `json:"cryptographic_binding_methods_supported"`
	CredentialSigningAlgValuesSupported  []string            `json:"credential_signing_alg_values_supported"`
	ProofTypesSupported                  ProofTypesSupported `json:"proof_types_supported"`
}

// IssuerMetadata is the OID4VCI credential issuer discovery document.
type IssuerMetadata struct {
	CredentialIssuer                  string                             `json:"credential_issuer"`
	CredentialEndpoint                string                             `json:"credential_endpoint"`
	CredentialConfigurationsSupported map[string]CredentialConfiguration `json:"credential_configurations_supported"`
}

// AuthServerMetadata is the OAuth authorization server discovery document.
type AuthServerMetadata struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
}
