package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kcc-issuer/internal/credential"
	"kcc-issuer/internal/issuance"
	"kcc-issuer/internal/platform/middleware"
	"kcc-issuer/internal/transport/httputil"
	"kcc-issuer/internal/verification"
	dErrors "kcc-issuer/pkg/domain-errors"
)

// Workflow is the slice of the verification service the HTTP layer needs.
// Returns domain objects, not HTTP response DTOs.
type Workflow interface {
	BuildAuthRequest(ctx context.Context) (string, error)
	HandleAuthResponse(ctx context.Context, idToken string) (*verification.IDVRequest, error)
	CompleteIDV(ctx context.Context, applicantDID string) error
	IssueAccessToken(ctx context.Context, req verification.TokenRequest) (*verification.TokenResponse, error)
	IssueCredential(ctx context.Context, authorizationHeader string, req verification.CredentialRequest) (*verification.CredentialResponse, error)
	IssuerMetadata() verification.IssuerMetadata
	AuthServerMetadata() verification.AuthServerMetadata
}

// Issuer mints credentials directly, outside the OID4VCI flow.
type Issuer interface {
	Connect(ctx context.Context) (*issuance.Session, error)
	Issue(ctx context.Context, sess *issuance.Session, subjectDID string, claims credential.KnownCustomerClaims) (*issuance.IssuedCredential, error)
}

// Records reads previously issued credential records.
type Records interface {
	FetchCredentialRecords(ctx context.Context, sess *issuance.Session, subjectDID string) ([]issuance.CredentialRecord, error)
}

type Handler struct {
	workflow Workflow
	issuer   Issuer
	records  Records
	logger   *slog.Logger

	// idvCallbackSecret gates POST /idv/submission when non-empty. The IDV
	// vendor callback is otherwise unauthenticated.
	idvCallbackSecret string
}

// Option tunes the handler.
type Option func(*Handler)

// WithIDVCallbackSecret requires the IDV vendor to present the shared secret
// as a bearer token on the submission callback.
func WithIDVCallbackSecret(secret string) Option {
	return func(h *Handler) { h.idvCallbackSecret = secret }
}

func New(workflow Workflow, issuer Issuer, records Records, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{workflow: workflow, issuer: issuer, records: records, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/kcc", h.HandleGetCredentials)
	r.Get("/kcc/issue", h.HandleIssueDirect)
	r.Get("/siopv2/auth-request", h.HandleAuthRequest)
	r.Post("/siopv2/response", h.HandleAuthResponse)
	r.Post("/idv/submission", h.HandleIDVSubmission)
	r.Get("/.well-known/openid-credential-issuer", h.HandleIssuerMetadata)
	r.Get("/.well-known/oauth-authorization-server", h.HandleAuthServerMetadata)
	r.Post("/oid4vci/token", h.HandleToken)
	r.Post("/oid4vci/credential", h.HandleCredential)
}

// HandleGetCredentials lists credential records previously written to the
// subject's node.
func (h *Handler) HandleGetCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subjectDID := r.URL.Query().Get("subjectDid")
	if subjectDID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "subjectDid is required"))
		return
	}

	sess, err := h.issuer.Connect(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "connect failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	records, err := h.records.FetchCredentialRecords(ctx, sess, subjectDID)
	if err != nil {
		h.logger.ErrorContext(ctx, "record query failed", "error", err, "request_id", requestID, "subject_did", subjectDID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteData(w, "Record query successful!", records)
}

// HandleIssueDirect mints a credential straight to a subject, bypassing the
// SIOPv2/OID4VCI exchange. Useful for local runs and demos.
func (h *Handler) HandleIssueDirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subjectDID := r.URL.Query().Get("subjectDid")
	if subjectDID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "subjectDid is required"))
		return
	}

	sess, err := h.issuer.Connect(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "connect failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	issued, err := h.issuer.Issue(ctx, sess, subjectDID, credential.DefaultKnownCustomer())
	if err != nil {
		h.logger.ErrorContext(ctx, "issuance failed", "error", err, "request_id", requestID, "subject_did", subjectDID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteData(w, "KCC issued successfully!", issued)
}

// HandleAuthRequest returns a signed SIOPv2 Authorization Request in JAR
// query string form.
func (h *Handler) HandleAuthRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	request, err := h.workflow.BuildAuthRequest(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "auth request build failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteData(w, "SIOPv2 Auth Request generated successfully!", map[string]string{"request": request})
}

type authResponseBody struct {
	IDToken string `json:"id_token"`
}

// HandleAuthResponse accepts the wallet's SIOPv2 Authorization Response.
// Wallets following response_mode=direct_post send a form body; a JSON body
// with the same field is accepted too.
func (h *Handler) HandleAuthResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	idToken, err := idTokenFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	idv, err := h.workflow.HandleAuthResponse(ctx, idToken)
	if err != nil {
		h.logger.ErrorContext(ctx, "auth response rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteData(w, "SIOPv2 Auth Response handled successfully!", idv)
}

func idTokenFromRequest(r *http.Request) (string, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/json" {
		var body authResponseBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", dErrors.New(dErrors.CodeBadRequest, "malformed request body")
		}
		return body.IDToken, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "malformed form body")
	}
	return r.PostFormValue("id_token"), nil
}

type idvSubmissionBody struct {
	ApplicantDID string `json:"applicantDid"`
}

// HandleIDVSubmission is the IDV vendor's completion callback.
func (h *Handler) HandleIDVSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if h.idvCallbackSecret != "" && !h.callbackAuthorized(r) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidToken, "callback authorization failed"))
		return
	}

	var body idvSubmissionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	if err := h.workflow.CompleteIDV(ctx, body.ApplicantDID); err != nil {
		h.logger.ErrorContext(ctx, "idv submission failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Message: "IDV submission recorded!"})
}

func (h *Handler) callbackAuthorized(r *http.Request) bool {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.idvCallbackSecret)) == 1
}

// HandleIssuerMetadata serves the OID4VCI discovery document.
func (h *Handler) HandleIssuerMetadata(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.workflow.IssuerMetadata())
}

// HandleAuthServerMetadata serves the OAuth authorization server discovery
// document.
func (h *Handler) HandleAuthServerMetadata(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.workflow.AuthServerMetadata())
}

// HandleToken is the OID4VCI token endpoint. Failures use the OAuth error
// body so wallets can match on the error code, authorization_pending in
// particular.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, err := tokenRequestFromRequest(r)
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	resp, err := h.workflow.IssueAccessToken(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "token request rejected", "error", err, "request_id", requestID, "client_id", req.ClientID)
		writeOAuthError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func tokenRequestFromRequest(r *http.Request) (verification.TokenRequest, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return verification.TokenRequest{}, dErrors.New(dErrors.CodeBadRequest, "malformed form body")
		}
		return verification.TokenRequest{
			GrantType:         r.PostFormValue("grant_type"),
			ClientID:          r.PostFormValue("client_id"),
			PreAuthorizedCode: r.PostFormValue("pre-authorized_code"),
		}, nil
	}
	var req verification.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return verification.TokenRequest{}, dErrors.New(dErrors.CodeBadRequest, "malformed request body")
	}
	return req, nil
}

// HandleCredential is the OID4VCI credential endpoint.
func (h *Handler) HandleCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req verification.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	resp, err := h.workflow.IssueCredential(ctx, r.Header.Get("Authorization"), req)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential request rejected", "error", err, "request_id", requestID)
		writeOAuthError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// oauthError is the RFC 6749 error body used by the OID4VCI endpoints.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeOAuthError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		httputil.WriteJSON(w, httputil.DomainCodeToHTTPStatus(domainErr.Code), oauthError{
			Error:            string(domainErr.Code),
			ErrorDescription: domainErr.Message,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusBadRequest, oauthError{Error: "invalid_request", ErrorDescription: err.Error()})
}
