// Package issuance owns the issuer's decentralized-identity session: the
// signing identity, the DWN node handle, protocol installation, role grants,
// and the mint-and-persist path for Known Customer Credentials.
package issuance

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kcc-issuer/internal/credential"
	"kcc-issuer/internal/dwn"
	"kcc-issuer/internal/platform/metrics"
	"kcc-issuer/internal/platform/tracer"
	dErrors "kcc-issuer/pkg/domain-errors"
	"kcc-issuer/pkg/didjwt"
)

// Session is an established connection: the resolved issuer identity plus
// the node handle. Operations take it explicitly so tests can inject a fake
// session without touching shared state.
type Session struct {
	Issuer *didjwt.Identity
	Node   dwn.Client
}

// ConnectFunc establishes a session. It is called at most once concurrently;
// the gateway caches the result for the process lifetime.
type ConnectFunc func(ctx context.Context) (*Session, error)

const defaultCredentialTTL = 365 * 24 * time.Hour

// Gateway mints and persists credentials. One gateway (and one underlying
// session) is shared process-wide.
type Gateway struct {
	connect       ConnectFunc
	authorizer    Authorizer
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
	credentialTTL time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	sess  *Session
}

// Option tunes the gateway.
type Option func(*Gateway)

// WithAuthorizer sets the write-permission authorizer. Without one the
// delegation step is skipped, which only works against a local node.
func WithAuthorizer(a Authorizer) Option {
	return func(g *Gateway) { g.authorizer = a }
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// WithCredentialTTL sets how long issued credentials stay valid.
func WithCredentialTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl > 0 {
			g.credentialTTL = ttl
		}
	}
}

// New constructs a gateway around a connect function.
func New(connect ConnectFunc, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		connect:       connect,
		logger:        logger,
		tracer:        tracer.NewNoop(),
		credentialTTL: defaultCredentialTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect establishes (or returns the cached) session. Concurrent callers
// share one in-flight connect.
func (g *Gateway) Connect(ctx context.Context) (*Session, error) {
	g.mu.RLock()
	if s := g.sess; s != nil {
		g.mu.RUnlock()
		return s, nil
	}
	g.mu.RUnlock()

	if g.connect == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer session is not configured")
	}

	ctx, span := g.tracer.Start(ctx, tracer.SpanConnect)
	result, err, _ := g.group.Do("connect", func() (any, error) {
		sess, err := g.connect(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConnection, "failed to establish issuer session")
		}
		if sess == nil || sess.Issuer == nil || sess.Node == nil {
			return nil, dErrors.New(dErrors.CodeConfiguration, "issuer session is incomplete")
		}
		g.mu.Lock()
		g.sess = sess
		g.mu.Unlock()
		g.logger.Info("issuer session established", "issuer_did", sess.Issuer.DID)
		return sess, nil
	})
	span.End(err)
	if err != nil {
		return nil, err
	}
	return result.(*Session), nil
}

// InstallProtocol registers the credential-exchange protocol on the node and
// propagates it to the issuer's own node. Re-installation happens on every
// process start; a duplicate rejection from the store is logged and swallowed.
func (g *Gateway) InstallProtocol(ctx context.Context, sess *Session) error {
	if sess == nil {
		return dErrors.New(dErrors.CodeConfiguration, "issuer session is unavailable")
	}
	ctx, span := g.tracer.Start(ctx, tracer.SpanInstallProtocol)
	err := g.installProtocol(ctx, sess)
	span.End(err)
	return err
}

func (g *Gateway) installProtocol(ctx context.Context, sess *Session) error {
	def := VcProtocolDefinition()
	status, err := sess.Node.ConfigureProtocol(ctx, def)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConnection, "protocol configure failed")
	}
	if !status.Success() {
		// Expected when the protocol is already installed.
		g.logger.Warn("protocol configure rejected, continuing", "status", status.Code, "detail", status.Detail)
		return nil
	}

	sendStatus, err := sess.Node.SendProtocol(ctx, def.Protocol, sess.Issuer.DID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConnection, "protocol send failed")
	}
	if !sendStatus.Success() {
		return dErrors.New(dErrors.CodeWriteRejected, sendStatus.Detail)
	}
	return nil
}

// GrantRole creates a role-grant record for the issuer under the installed
// protocol and sends it to the issuer's own node. A duplicate-role rejection
// is success: the grant already exists and no send is performed.
func (g *Gateway) GrantRole(ctx context.Context, sess *Session, role string) error {
	if sess == nil {
		return dErrors.New(dErrors.CodeConfiguration, "issuer session is unavailable")
	}
	ctx, span := g.tracer.Start(ctx, tracer.SpanGrantRole, tracer.String(tracer.AttrRole, role))
	err := g.grantRole(ctx, sess, role)
	span.End(err)
	return err
}

func (g *Gateway) grantRole(ctx context.Context, sess *Session, role string) error {
	schema := SchemaIssuer
	if role == RoleJudge {
		schema = SchemaJudge
	}
	record, status, err := sess.Node.CreateRecord(ctx, dwn.CreateRecordRequest{
		DataFormat:   DataFormatPlain,
		Protocol:     ProtocolURI,
		ProtocolPath: role,
		Schema:       schema,
		Recipient:    sess.Issuer.DID,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConnection, "role record create failed")
	}
	if !status.Success() {
		if status.Code == 400 && strings.Contains(status.Detail, dwn.DuplicateRoleMarker) {
			g.logger.Info("role already granted", "role", role)
			return nil
		}
		return dErrors.New(dErrors.CodeWriteRejected, status.Detail)
	}

	sendStatus, err := sess.Node.SendRecord(ctx, record.ID, sess.Issuer.DID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConnection, "role record send failed")
	}
	if !sendStatus.Success() {
		return dErrors.New(dErrors.CodeWriteRejected, sendStatus.Detail)
	}
	return nil
}

// IssuedCredential is the result of a successful mint-and-persist.
type IssuedCredential struct {
	RecordID string `json:"recordId"`
	VcJwt    string `json:"-"`
}

// Issue builds the credential, signs it, ensures protocol and permissions are
// in place, and persists the signed VC as a record addressed to subjectDID.
// Every step is a hard gate; there is no partial success.
func (g *Gateway) Issue(ctx context.Context, sess *Session, subjectDID string, claims credential.KnownCustomerClaims) (*IssuedCredential, error) {
	if sess == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer session is unavailable")
	}
	ctx, span := g.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrSubjectDID, subjectDID))
	issued, err := g.issue(ctx, sess, subjectDID, claims)
	if err == nil {
		span.SetAttributes(tracer.String(tracer.AttrRecordID, issued.RecordID))
	}
	span.End(err)
	return issued, err
}

func (g *Gateway) issue(ctx context.Context, sess *Session, subjectDID string, claims credential.KnownCustomerClaims) (*IssuedCredential, error) {
	g.logger.Info("issuing kcc credential", "subject_did", subjectDID)

	vcJwt, err := credential.SignVC(sess.Issuer, subjectDID, claims, time.Now().Add(g.credentialTTL))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}

	if err := g.InstallProtocol(ctx, sess); err != nil {
		return nil, err
	}

	if g.authorizer != nil {
		actx, aspan := g.tracer.Start(ctx, tracer.SpanAuthorizeWrite)
		err := g.authorizer.AuthorizeWrite(actx, sess.Issuer.DID)
		aspan.End(err)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConnection, "write permission delegation failed")
		}
	}

	if err := g.GrantRole(ctx, sess, RoleIssuer); err != nil {
		return nil, err
	}

	record, status, err := sess.Node.CreateRecord(ctx, dwn.CreateRecordRequest{
		Data:         []byte(vcJwt),
		DataFormat:   DataFormatVcJwt,
		Protocol:     ProtocolURI,
		ProtocolPath: PathCredential,
		ProtocolRole: RoleIssuer,
		Schema:       SchemaCredential,
		Recipient:    subjectDID,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, "credential record create failed")
	}
	if !status.Success() {
		g.observeWrite("rejected")
		return nil, dErrors.New(dErrors.CodeWriteRejected, status.Detail)
	}

	sendStatus, err := sess.Node.SendRecord(ctx, record.ID, subjectDID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, "credential record send failed")
	}
	if !sendStatus.Success() {
		g.observeWrite("rejected")
		return nil, dErrors.New(dErrors.CodeWriteRejected, sendStatus.Detail)
	}

	g.observeWrite("ok")
	if g.metrics != nil {
		g.metrics.CredentialsIssued.Inc()
	}
	g.logger.Info("kcc credential persisted", "subject_did", subjectDID, "record_id", record.ID)
	return &IssuedCredential{RecordID: record.ID, VcJwt: vcJwt}, nil
}

func (g *Gateway) observeWrite(outcome string) {
	if g.metrics != nil {
		g.metrics.DWNWrites.WithLabelValues(outcome).Inc()
	}
}
