package issuance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kcc-issuer/internal/credential"
	"kcc-issuer/internal/dwn"
	"kcc-issuer/internal/dwn/mocks"
	dErrors "kcc-issuer/pkg/domain-errors"
	"kcc-issuer/pkg/didjwt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(t *testing.T, node dwn.Client) *Session {
	t.Helper()
	issuer, err := didjwt.NewIdentity()
	require.NoError(t, err)
	return &Session{Issuer: issuer, Node: node}
}

func TestConnectCachesSession(t *testing.T) {
	node := dwn.NewMemoryNode()
	issuer, err := didjwt.NewIdentity()
	require.NoError(t, err)

	var calls atomic.Int32
	gw := New(func(context.Context) (*Session, error) {
		calls.Add(1)
		return &Session{Issuer: issuer, Node: node}, nil
	}, testLogger())

	first, err := gw.Connect(context.Background())
	require.NoError(t, err)
	second, err := gw.Connect(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConnectFailures(t *testing.T) {
	gw := New(nil, testLogger())
	_, err := gw.Connect(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	gw = New(func(context.Context) (*Session, error) {
		return nil, errors.New("dns broke")
	}, testLogger())
	_, err = gw.Connect(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConnection))
}

func TestGrantRoleDuplicateIsSuccessWithoutSend(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockClient(ctrl)
	gw := New(nil, testLogger())
	sess := testSession(t, node)

	// First grant: record created and sent to the issuer's own node.
	node.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		Return(&dwn.Record{ID: "rec-1"}, dwn.Status{Code: 202}, nil)
	node.EXPECT().
		SendRecord(gomock.Any(), "rec-1", sess.Issuer.DID).
		Return(dwn.Status{Code: 202}, nil)
	require.NoError(t, gw.GrantRole(context.Background(), sess, RoleIssuer))

	// Second grant: duplicate-role rejection is success and performs no send.
	node.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		Return(nil, dwn.Status{Code: 400, Detail: dwn.DuplicateRoleMarker + ": already granted"}, nil)
	require.NoError(t, gw.GrantRole(context.Background(), sess, RoleIssuer))
}

func TestGrantRoleOtherRejectionFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockClient(ctrl)
	gw := New(nil, testLogger())
	sess := testSession(t, node)

	node.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		Return(nil, dwn.Status{Code: 401, Detail: "not authorized"}, nil)

	err := gw.GrantRole(context.Background(), sess, RoleIssuer)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeWriteRejected))
	assert.Contains(t, err.Error(), "not authorized")
}

func TestGrantRoleDuplicateAgainstMemoryNode(t *testing.T) {
	node := dwn.NewMemoryNode()
	gw := New(nil, testLogger())
	sess := testSession(t, node)

	require.NoError(t, gw.GrantRole(context.Background(), sess, RoleIssuer))
	require.NoError(t, gw.GrantRole(context.Background(), sess, RoleIssuer))
}

func TestIssuePersistsCredential(t *testing.T) {
	node := dwn.NewMemoryNode()
	gw := New(nil, testLogger())
	sess := testSession(t, node)
	subject, err := didjwt.NewIdentity()
	require.NoError(t, err)

	issued, err := gw.Issue(context.Background(), sess, subject.DID, credential.DefaultKnownCustomer())
	require.NoError(t, err)
	require.NotEmpty(t, issued.RecordID)
	require.NotEmpty(t, issued.VcJwt)

	claims, parsedSubject, err := credential.ParseVC(issued.VcJwt)
	require.NoError(t, err)
	assert.Equal(t, subject.DID, parsedSubject)
	assert.Equal(t, "US", claims.CountryOfResidence)

	query := NewQuery(testLogger(), nil)
	records, err := query.FetchCredentialRecords(context.Background(), sess, subject.DID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, issued.RecordID, records[0].RecordID)
	assert.Equal(t, issued.VcJwt, records[0].Data)
}

func TestIssueFailsWhenWriteRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockClient(ctrl)
	gw := New(nil, testLogger())
	sess := testSession(t, node)

	node.EXPECT().ConfigureProtocol(gomock.Any(), gomock.Any()).Return(dwn.Status{Code: 202}, nil)
	node.EXPECT().SendProtocol(gomock.Any(), ProtocolURI, sess.Issuer.DID).Return(dwn.Status{Code: 202}, nil)
	// Role grant reports duplicate so no role send happens.
	node.EXPECT().
		CreateRecord(gomock.Any(), roleCreate()).
		Return(nil, dwn.Status{Code: 400, Detail: dwn.DuplicateRoleMarker}, nil)
	node.EXPECT().
		CreateRecord(gomock.Any(), credentialCreate()).
		Return(nil, dwn.Status{Code: 500, Detail: "disk full"}, nil)

	_, err := gw.Issue(context.Background(), sess, "did:key:zSubject", credential.DefaultKnownCustomer())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeWriteRejected))
	assert.Contains(t, err.Error(), "disk full")
}

func TestIssueFailsWhenAuthorizationUnreachable(t *testing.T) {
	node := dwn.NewMemoryNode()
	gw := New(nil, testLogger(), WithAuthorizer(failingAuthorizer{}))
	sess := testSession(t, node)

	_, err := gw.Issue(context.Background(), sess, "did:key:zSubject", credential.DefaultKnownCustomer())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConnection))
}

func TestIssueRequiresSession(t *testing.T) {
	gw := New(nil, testLogger())
	_, err := gw.Issue(context.Background(), nil, "did:key:zSubject", credential.DefaultKnownCustomer())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestFetchCredentialRecordsQueryRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mocks.NewMockClient(ctrl)
	sess := testSession(t, node)

	node.EXPECT().
		QueryRecords(gomock.Any(), "did:key:zSubject", gomock.Any()).
		Return(nil, dwn.Status{Code: 401, Detail: "grant required"}, nil)

	query := NewQuery(testLogger(), nil)
	_, err := query.FetchCredentialRecords(context.Background(), sess, "did:key:zSubject")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeQueryRejected))
	assert.Contains(t, err.Error(), "grant required")
}

type failingAuthorizer struct{}

func (failingAuthorizer) AuthorizeWrite(context.Context, string) error {
	return errors.New("authorize endpoint unreachable")
}

// roleCreate matches role-grant record creation requests.
func roleCreate() gomock.Matcher {
	return createWithPath(RoleIssuer)
}

// credentialCreate matches credential record creation requests.
func credentialCreate() gomock.Matcher {
	return createWithPath(PathCredential)
}

type createWithPath string

func (m createWithPath) Matches(x any) bool {
	req, ok := x.(dwn.CreateRecordRequest)
	return ok && req.ProtocolPath == string(m)
}

func (m createWithPath) String() string {
	return "create record with protocol path " + string(m)
}
