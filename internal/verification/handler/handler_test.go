package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"kcc-issuer/internal/dwn"
	"kcc-issuer/internal/issuance"
	"kcc-issuer/internal/verification"
	"kcc-issuer/pkg/didjwt"
)

// HandlerSuite wires the real workflow, gateway, and in-memory node behind
// the HTTP surface so requests exercise the full stack.
type HandlerSuite struct {
	suite.Suite
	issuer *didjwt.Identity
	wallet *didjwt.Identity
	router chi.Router
}

func (s *HandlerSuite) SetupTest() {
	var err error
	s.issuer, err = didjwt.NewIdentity()
	s.Require().NoError(err)
	s.wallet, err = didjwt.NewIdentity()
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node := dwn.NewMemoryNode()
	gateway := issuance.New(func(context.Context) (*issuance.Session, error) {
		return &issuance.Session{Issuer: s.issuer, Node: node}, nil
	}, logger)
	workflow := verification.NewService(
		s.issuer,
		verification.NewMemoryStatusStore(),
		gateway,
		"http://localhost:3001",
		"http://localhost:3002/idv-form",
		logger,
	)

	s.router = chi.NewRouter()
	New(workflow, gateway, issuance.NewQuery(logger, nil), logger).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(out))
}

func (s *HandlerSuite) signWallet(claims jwt.MapClaims) string {
	token, err := s.wallet.Sign(claims)
	s.Require().NoError(err)
	return token
}

// fetchAuthRequest drives GET /siopv2/auth-request and returns the raw JAR
// query string.
func (s *HandlerSuite) fetchAuthRequest() string {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/siopv2/auth-request", nil))
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	s.decode(rec, &body)
	return body.Data["request"]
}

// postAuthResponse submits a wallet-signed id_token as a direct_post form and
// returns the pre-authorized code from the offer.
func (s *HandlerSuite) postAuthResponse() string {
	idToken := s.signWallet(jwt.MapClaims{
		"iss":   s.wallet.DID,
		"sub":   s.wallet.DID,
		"iat":   time.Now().Unix(),
		"nonce": "n-1",
	})
	form := url.Values{"id_token": {idToken}}
	req := httptest.NewRequest(http.MethodPost, "/siopv2/response", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Data verification.IDVRequest `json:"data"`
	}
	s.decode(rec, &body)
	s.Equal("http://localhost:3002/idv-form", body.Data.URL)
	return body.Data.CredentialOffer.Grants.PreAuthorizedCode.PreAuthorizedCode
}

func (s *HandlerSuite) completeIDV() {
	payload, _ := json.Marshal(map[string]string{"applicantDid": s.wallet.DID})
	req := httptest.NewRequest(http.MethodPost, "/idv/submission", bytes.NewReader(payload))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) postToken(code string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(verification.TokenRequest{
		GrantType:         verification.GrantTypePreAuthorizedCode,
		ClientID:          s.wallet.DID,
		PreAuthorizedCode: code,
	})
	req := httptest.NewRequest(http.MethodPost, "/oid4vci/token", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *HandlerSuite) TestFullIssuanceFlow() {
	jar := s.fetchAuthRequest()
	params, err := url.ParseQuery(jar)
	s.Require().NoError(err)
	s.Equal(s.issuer.DID, params.Get("client_id"))
	_, err = didjwt.Verify(params.Get("request"))
	s.Require().NoError(err)

	code := s.postAuthResponse()
	s.Require().NotEmpty(code)

	// Token before IDV completion: a pollable OAuth error, not a hard one.
	rec := s.postToken(code)
	s.Equal(http.StatusBadRequest, rec.Code)
	var oauthErr struct {
		Error string `json:"error"`
	}
	s.decode(rec, &oauthErr)
	s.Equal("authorization_pending", oauthErr.Error)

	s.completeIDV()

	rec = s.postToken(code)
	s.Require().Equal(http.StatusOK, rec.Code)
	var token verification.TokenResponse
	s.decode(rec, &token)
	s.Equal("bearer", token.TokenType)
	s.Equal(int64(1800), token.ExpiresIn)
	s.NotEmpty(token.CNonce)

	proof := s.signWallet(jwt.MapClaims{
		"iss":   s.wallet.DID,
		"iat":   time.Now().Unix(),
		"nonce": token.CNonce,
	})
	payload, _ := json.Marshal(verification.CredentialRequest{Proof: verification.Proof{Jwt: proof}})
	req := httptest.NewRequest(http.MethodPost, "/oid4vci/credential", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	rec = s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)
	var cred verification.CredentialResponse
	s.decode(rec, &cred)
	s.Require().NotEmpty(cred.Credential)

	// The credential landed on the wallet's node.
	rec = s.do(httptest.NewRequest(http.MethodGet, "/kcc?subjectDid="+url.QueryEscape(s.wallet.DID), nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var records struct {
		Data []issuance.CredentialRecord `json:"data"`
	}
	s.decode(rec, &records)
	s.Require().Len(records.Data, 1)
	s.Equal(cred.Credential, records.Data[0].Data)
}

func (s *HandlerSuite) TestAuthResponseAcceptsJSON() {
	idToken := s.signWallet(jwt.MapClaims{
		"iss":   s.wallet.DID,
		"iat":   time.Now().Unix(),
		"nonce": "n-2",
	})
	payload, _ := json.Marshal(map[string]string{"id_token": idToken})
	req := httptest.NewRequest(http.MethodPost, "/siopv2/response", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestAuthResponseRejectsGarbage() {
	form := url.Values{"id_token": {"not.a.jwt"}}
	req := httptest.NewRequest(http.MethodPost, "/siopv2/response", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestTokenEndpointAcceptsForm() {
	code := s.postAuthResponse()
	s.completeIDV()

	form := url.Values{
		"grant_type":          {verification.GrantTypePreAuthorizedCode},
		"client_id":           {s.wallet.DID},
		"pre-authorized_code": {code},
	}
	req := httptest.NewRequest(http.MethodPost, "/oid4vci/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var token verification.TokenResponse
	s.decode(rec, &token)
	s.NotEmpty(token.AccessToken)
}

func (s *HandlerSuite) TestCredentialRejectsMissingBearer() {
	payload, _ := json.Marshal(verification.CredentialRequest{Proof: verification.Proof{Jwt: "x"}})
	req := httptest.NewRequest(http.MethodPost, "/oid4vci/credential", bytes.NewReader(payload))
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)

	var oauthErr struct {
		Error string `json:"error"`
	}
	s.decode(rec, &oauthErr)
	s.Equal("invalid_token", oauthErr.Error)
}

func (s *HandlerSuite) TestDirectIssueAndQuery() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/kcc/issue?subjectDid="+url.QueryEscape(s.wallet.DID), nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var issued struct {
		Data struct {
			RecordID string `json:"recordId"`
		} `json:"data"`
	}
	s.decode(rec, &issued)
	s.NotEmpty(issued.Data.RecordID)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/kcc?subjectDid="+url.QueryEscape(s.wallet.DID), nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var records struct {
		Data []issuance.CredentialRecord `json:"data"`
	}
	s.decode(rec, &records)
	s.Len(records.Data, 1)
}

func (s *HandlerSuite) TestQueryRequiresSubject() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/kcc", nil))
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/kcc/issue", nil))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMetadataEndpoints() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/.well-known/openid-credential-issuer", nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var issuerMeta verification.IssuerMetadata
	s.decode(rec, &issuerMeta)
	s.Equal("http://localhost:3001", issuerMeta.CredentialIssuer)
	s.Contains(issuerMeta.CredentialConfigurationsSupported, "KnownCustomerCredential")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var authMeta verification.AuthServerMetadata
	s.decode(rec, &authMeta)
	s.Equal("http://localhost:3001/oid4vci/token", authMeta.TokenEndpoint)
}

func TestIDVCallbackSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer, err := didjwt.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	node := dwn.NewMemoryNode()
	gateway := issuance.New(func(context.Context) (*issuance.Session, error) {
		return &issuance.Session{Issuer: issuer, Node: node}, nil
	}, logger)
	workflow := verification.NewService(issuer, verification.NewMemoryStatusStore(), gateway,
		"http://localhost:3001", "http://localhost:3002", logger)

	router := chi.NewRouter()
	New(workflow, gateway, issuance.NewQuery(logger, nil), logger,
		WithIDVCallbackSecret("hunter2")).Register(router)

	post := func(authorization string) int {
		payload, _ := json.Marshal(map[string]string{"applicantDid": "did:key:zalice"})
		req := httptest.NewRequest(http.MethodPost, "/idv/submission", bytes.NewReader(payload))
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(""); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without secret, got %d", code)
	}
	if code := post("Bearer wrong"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 with wrong secret, got %d", code)
	}
	if code := post("Bearer hunter2"); code != http.StatusOK {
		t.Fatalf("expected 200 with secret, got %d", code)
	}
}
