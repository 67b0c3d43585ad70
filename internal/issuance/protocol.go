package issuance

import "kcc-issuer/internal/dwn"

// Wire-level constants for the credential-exchange protocol installed on the
// issuer's node and the subject's node.
const (
	ProtocolURI = "https://vc-to-dwn.tbddev.org/vc-protocol"

	SchemaCredential = ProtocolURI + "/schema/credential"
	SchemaIssuer     = ProtocolURI + "/schema/issuer"
	SchemaJudge      = ProtocolURI + "/schema/judge"

	PathCredential = "credential"

	RoleIssuer = "issuer"
	RoleJudge  = "judge"

	DataFormatVcJwt = "application/vc+jwt"
	DataFormatPlain = "text/plain"
)

// VcProtocolDefinition returns the credential-exchange protocol definition.
func VcProtocolDefinition() dwn.ProtocolDefinition {
	return dwn.ProtocolDefinition{
		Protocol:  ProtocolURI,
		Published: true,
		Types: map[string]dwn.ProtocolType{
			PathCredential: {Schema: SchemaCredential, DataFormats: []string{DataFormatVcJwt}},
			RoleIssuer:     {Schema: SchemaIssuer, DataFormats: []string{DataFormatPlain}},
			RoleJudge:      {Schema: SchemaJudge, DataFormats: []string{DataFormatPlain}},
		},
	}
}
