package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcc-issuer/pkg/didjwt"
)

func TestNewKnownCustomerDefaults(t *testing.T) {
	claims := NewKnownCustomer("DE", DefaultSchema)

	assert.Equal(t, "DE", claims.CountryOfResidence)
	assert.Equal(t, DefaultSchema, claims.CredentialSchema)
	assert.Empty(t, claims.Tier)
	assert.Nil(t, claims.Jurisdiction)
	require.NotNil(t, claims.Evidence, "evidence must default to empty, not nil")
	assert.Len(t, claims.Evidence, 0)
}

func TestNewKnownCustomerOptions(t *testing.T) {
	claims := NewKnownCustomer("US", DefaultSchema,
		WithTier("Silver"),
		WithJurisdiction("CA"),
		WithEvidence(EvidenceEntry{Kind: "document_verification", Checks: []string{"passport"}}),
	)

	assert.Equal(t, "Silver", claims.Tier)
	require.NotNil(t, claims.Jurisdiction)
	assert.Equal(t, "CA", claims.Jurisdiction.Country)
	require.Len(t, claims.Evidence, 1)
	assert.Equal(t, []string{"passport"}, claims.Evidence[0].Checks)
}

func TestSignParseRoundTrip(t *testing.T) {
	issuer, err := didjwt.NewIdentity()
	require.NoError(t, err)
	holder, err := didjwt.NewIdentity()
	require.NoError(t, err)

	original := DefaultKnownCustomer()
	vcJwt, err := SignVC(issuer, holder.DID, original, time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)

	parsed, subject, err := ParseVC(vcJwt)
	require.NoError(t, err)
	assert.Equal(t, holder.DID, subject)
	assert.Equal(t, original.CountryOfResidence, parsed.CountryOfResidence)
	assert.Equal(t, original.Tier, parsed.Tier)
	assert.Equal(t, original.Jurisdiction, parsed.Jurisdiction)
	assert.Equal(t, original.Evidence, parsed.Evidence)
	assert.Equal(t, original.CredentialSchema, parsed.CredentialSchema)
}

func TestSignVCValidation(t *testing.T) {
	issuer, err := didjwt.NewIdentity()
	require.NoError(t, err)

	_, err = SignVC(nil, "did:key:zabc", DefaultKnownCustomer(), time.Now().Add(time.Hour))
	assert.Error(t, err)

	_, err = SignVC(issuer, "", DefaultKnownCustomer(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestParseVCRejectsGarbage(t *testing.T) {
	_, _, err := ParseVC("not-a-jwt")
	assert.Error(t, err)
}
