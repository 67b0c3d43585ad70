// Package verification implements the issuance protocol state machine: it
// correlates a pseudo-anonymous applicant across the SIOPv2 auth exchange,
// the IDV result callback, and the OID4VCI token and credential requests,
// and only lets a credential be minted after IDV completion.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"

	"kcc-issuer/internal/credential"
	"kcc-issuer/internal/issuance"
	"kcc-issuer/internal/platform/metrics"
	dErrors "kcc-issuer/pkg/domain-errors"
	"kcc-issuer/pkg/didjwt"
)

// CredentialIssuer is the slice of the issuance gateway the workflow needs.
type CredentialIssuer interface {
	Connect(ctx context.Context) (*issuance.Session, error)
	Issue(ctx context.Context, sess *issuance.Session, subjectDID string, claims credential.KnownCustomerClaims) (*issuance.IssuedCredential, error)
}

const (
	defaultTokenTTL       = 30 * time.Minute
	defaultPreAuthCodeTTL = 15 * time.Minute

	scopeOpenID         = "openid"
	responseTypeIDToken = "id_token"
	responseModePost    = "direct_post"
	subjectSyntaxTypes  = "did:dht did:jwk did:web did:key"
)

// Service is the protocol state machine. One instance is shared by all
// HTTP-triggered operations; per-applicant ordering comes from the status
// store, not from any lock here.
type Service struct {
	issuer   *didjwt.Identity
	statuses StatusStore
	gateway  CredentialIssuer
	logger   *slog.Logger
	metrics  *metrics.Metrics

	baseURL    string
	idvFormURL string
	tokenTTL   time.Duration

	// codes maps an outstanding pre-authorized code to the applicant DID it
	// was minted for; entries are single-use and expire with the cache TTL.
	codes *gocache.Cache
	// nonces holds outstanding c_nonce values keyed by nonce.
	nonces *gocache.Cache
}

// Option tunes the service.
type Option func(*Service)

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTokenTTL sets the access token (and c_nonce) lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithPreAuthCodeTTL sets the pre-authorized code validity window.
func WithPreAuthCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.codes = gocache.New(ttl, ttl)
		}
	}
}

// NewService wires the workflow. issuer may be nil when the identity could
// not be resolved; operations that need it fail with a configuration error.
func NewService(issuer *didjwt.Identity, statuses StatusStore, gateway CredentialIssuer, baseURL, idvFormURL string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		issuer:     issuer,
		statuses:   statuses,
		gateway:    gateway,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		idvFormURL: idvFormURL,
		tokenTTL:   defaultTokenTTL,
		codes:      gocache.New(defaultPreAuthCodeTTL, defaultPreAuthCodeTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nonces = gocache.New(s.tokenTTL, s.tokenTTL)
	return s
}

// newNonce returns 16 cryptographically random bytes, hex encoded.
func newNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// BuildAuthRequest constructs and signs a SIOPv2 Authorization Request and
// returns it in JAR format as a query string. No applicant state is touched;
// state begins only once a response is seen.
func (s *Service) BuildAuthRequest(_ context.Context) (string, error) {
	if s.issuer == nil {
		return "", dErrors.New(dErrors.CodeConfiguration, "issuer identity is unavailable")
	}

	request := AuthRequestPayload{
		ClientID:     s.issuer.DID,
		Scope:        scopeOpenID,
		ResponseType: responseTypeIDToken,
		ResponseURI:  s.baseURL + "/siopv2/response",
		ResponseMode: responseModePost,
		Nonce:        newNonce(),
		ClientMetadata: ClientMetadata{
			SubjectSyntaxTypesSupported: subjectSyntaxTypes,
		},
	}

	now := time.Now()
	signed, err := s.issuer.Sign(jwt.MapClaims{
		"sub":     s.issuer.DID,
		"iss":     s.issuer.DID,
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
		"request": request,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign auth request")
	}

	if s.metrics != nil {
		s.metrics.SiopRequestsBuilt.Inc()
	}

	params := url.Values{}
	params.Set("client_id", s.issuer.DID)
	params.Set("request", signed)
	return params.Encode(), nil
}

// HandleAuthResponse validates a SIOPv2 auth response id_token, moves the
// applicant to PENDING, and returns a credential offer plus the hand-off URL
// to the external IDV vendor.
func (s *Service) HandleAuthResponse(ctx context.Context, idToken string) (*IDVRequest, error) {
	if idToken == "" {
		return nil, s.rejectResponse("missing id token")
	}
	claims, err := didjwt.Verify(idToken)
	if err != nil {
		return nil, s.rejectResponse("id token verification failed")
	}
	if nonce, _ := claims["nonce"].(string); nonce == "" {
		return nil, s.rejectResponse("nonce invalid")
	}
	applicantDID, _ := claims["iss"].(string)
	if applicantDID == "" {
		return nil, s.rejectResponse("id token has no issuer")
	}

	if err := s.statuses.MarkPending(ctx, applicantDID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record applicant status")
	}

	code := newNonce()
	s.codes.SetDefault(code, applicantDID)

	if s.metrics != nil {
		s.metrics.SiopResponsesHandled.WithLabelValues("accepted").Inc()
	}
	s.logger.Info("siop auth response accepted", "applicant_did", applicantDID)

	return &IDVRequest{
		CredentialOffer: CredentialOffer{
			CredentialIssuer:           s.baseURL,
			CredentialConfigurationIDs: []string{credential.TypeKnownCustomerCredential},
			Grants: OfferGrants{
				PreAuthorizedCode: PreAuthorizedCodeGrant{PreAuthorizedCode: code},
			},
		},
		URL: s.idvFormURL,
	}, nil
}

func (s *Service) rejectResponse(msg string) error {
	if s.metrics != nil {
		s.metrics.SiopResponsesHandled.WithLabelValues("rejected").Inc()
	}
	return dErrors.New(dErrors.CodeInvalidResponse, msg)
}

// CompleteIDV records that the external IDV vendor finished verification for
// the applicant. Idempotent and unconditional.
func (s *Service) CompleteIDV(ctx context.Context, applicantDID string) error {
	if applicantDID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "applicantDid is required")
	}
	if err := s.statuses.MarkCompleted(ctx, applicantDID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record idv completion")
	}
	if s.metrics != nil {
		s.metrics.IDVCompletions.Inc()
	}
	s.logger.Info("idv completed", "applicant_did", applicantDID)
	return nil
}

// IssueAccessToken mints a bearer token for a wallet whose applicant has
// COMPLETED IDV. PENDING is a recoverable, pollable condition, not a hard
// failure.
func (s *Service) IssueAccessToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.GrantType != GrantTypePreAuthorizedCode {
		return nil, s.rejectToken(dErrors.CodeUnsupportedGrantType,
			"the authorization grant type is not supported by the authorization server")
	}
	if req.PreAuthorizedCode == "" {
		return nil, s.rejectToken(dErrors.CodeInvalidGrant, "the provided pre-auth code is invalid")
	}
	bound, found := s.codes.Get(req.PreAuthorizedCode)
	if !found {
		return nil, s.rejectToken(dErrors.CodeInvalidGrant, "the provided pre-auth code is invalid")
	}
	if applicant, _ := bound.(string); applicant != req.ClientID {
		return nil, s.rejectToken(dErrors.CodeInvalidGrant, "pre-auth code was not issued to this client")
	}

	status, err := s.statuses.Get(ctx, req.ClientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read applicant status")
	}
	switch status {
	case StatusPending:
		return nil, s.rejectToken(dErrors.CodeAuthorizationPending,
			"still waiting to hear back from the IDV submission")
	case StatusCompleted:
		// fall through
	default:
		return nil, s.rejectToken(dErrors.CodeInvalidGrant, "no verification on record for this client")
	}

	if s.issuer == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer identity is unavailable")
	}

	now := time.Now()
	accessToken, err := s.issuer.Sign(jwt.MapClaims{
		"iss": s.issuer.DID,
		"sub": req.ClientID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	// The code is single-use: redeem only after every gate has passed.
	s.codes.Delete(req.PreAuthorizedCode)

	cNonce := newNonce()
	s.nonces.SetDefault(cNonce, req.ClientID)

	if s.metrics != nil {
		s.metrics.TokenRequests.WithLabelValues("issued").Inc()
	}
	s.logger.Info("access token issued", "applicant_did", req.ClientID)

	seconds := int64(s.tokenTTL.Seconds())
	return &TokenResponse{
		AccessToken:     accessToken,
		TokenType:       "bearer",
		ExpiresIn:       seconds,
		CNonce:          cNonce,
		CNonceExpiresIn: seconds,
	}, nil
}

func (s *Service) rejectToken(code dErrors.Code, msg string) error {
	if s.metrics != nil {
		outcome := "rejected"
		if code == dErrors.CodeAuthorizationPending {
			outcome = "pending"
		}
		s.metrics.TokenRequests.WithLabelValues(outcome).Inc()
	}
	return dErrors.New(code, msg)
}

// IssueCredential validates the bearer token and the holder's
// proof-of-possession, then delegates minting to the issuance gateway. The
// subject DID comes from the proof, not from the access token: the proof is
// what binds the credential to a key the holder controls.
func (s *Service) IssueCredential(ctx context.Context, authorizationHeader string, req CredentialRequest) (*CredentialResponse, error) {
	accessToken, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, s.rejectCredential(dErrors.CodeInvalidToken, "access token verification failed")
	}
	if _, err := didjwt.Verify(accessToken); err != nil {
		return nil, s.rejectCredential(dErrors.CodeInvalidToken, "access token verification failed")
	}

	proofClaims, err := didjwt.Verify(req.Proof.Jwt)
	if err != nil {
		return nil, s.rejectCredential(dErrors.CodeInvalidProof, "proof jwt verification failed")
	}
	if nonce, _ := proofClaims["nonce"].(string); nonce == "" {
		return nil, s.rejectCredential(dErrors.CodeInvalidProof, "nonce invalid")
	}
	holderDID, _ := proofClaims["iss"].(string)
	if holderDID == "" {
		return nil, s.rejectCredential(dErrors.CodeInvalidProof, "proof jwt has no issuer")
	}

	sess, err := s.gateway.Connect(ctx)
	if err != nil {
		return nil, err
	}
	issued, err := s.gateway.Issue(ctx, sess, holderDID, credential.DefaultKnownCustomer())
	if err != nil {
		return nil, err
	}
	return &CredentialResponse{Credential: issued.VcJwt}, nil
}

func (s *Service) rejectCredential(code dErrors.Code, msg string) error {
	if s.metrics != nil {
		s.metrics.CredentialFailures.WithLabelValues(string(code)).Inc()
	}
	return dErrors.New(code, msg)
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// IssuerMetadata is the OID4VCI discovery document. Pure function of static
// configuration.
func (s *Service) IssuerMetadata() IssuerMetadata {
	cfg := CredentialConfiguration{
		Format:                               "jwt_vc_json",
		CryptographicBindingMethodsSupported: []string{"did:web", "did:jwk", "did:dht", "did:key"},
		CredentialSigningAlgValuesSupported:  []string{"EdDSA", "ES256K"},
	}
	cfg.ProofTypesSupported.Jwt.ProofSigningAlgValuesSupported = []string{"EdDSA", "ES256K"}
	return IssuerMetadata{
		CredentialIssuer:   s.baseURL,
		CredentialEndpoint: s.baseURL + "/oid4vci/credential",
		CredentialConfigurationsSupported: map[string]CredentialConfiguration{
			credential.TypeKnownCustomerCredential: cfg,
		},
	}
}

// AuthServerMetadata is the OAuth authorization server discovery document.
func (s *Service) AuthServerMetadata() AuthServerMetadata {
	return AuthServerMetadata{
		Issuer:        s.baseURL,
		TokenEndpoint: s.baseURL + "/oid4vci/token",
	}
}
