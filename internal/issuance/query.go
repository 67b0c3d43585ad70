package issuance

import (
	"context"
	"log/slog"

	"kcc-issuer/internal/dwn"
	"kcc-issuer/internal/platform/tracer"
	dErrors "kcc-issuer/pkg/domain-errors"
)

// CredentialRecord is one previously issued credential fetched from the
// subject's node.
type CredentialRecord struct {
	RecordID string `json:"recordId"`
	Data     string `json:"data"`
}

// Query is the read path over previously issued credential records.
type Query struct {
	logger *slog.Logger
	tracer tracer.Tracer
}

// NewQuery constructs the query façade.
func NewQuery(logger *slog.Logger, t tracer.Tracer) *Query {
	if t == nil {
		t = tracer.NewNoop()
	}
	return &Query{logger: logger, tracer: t}
}

// FetchCredentialRecords reads all credential records addressed to
// subjectDID, filtered by the protocol/schema/dataFormat triple. The result
// is eagerly materialized in store-native order.
func (q *Query) FetchCredentialRecords(ctx context.Context, sess *Session, subjectDID string) ([]CredentialRecord, error) {
	if sess == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer session is unavailable")
	}
	ctx, span := q.tracer.Start(ctx, tracer.SpanQueryRecords, tracer.String(tracer.AttrSubjectDID, subjectDID))

	records, status, err := sess.Node.QueryRecords(ctx, subjectDID, dwn.RecordFilter{
		DataFormat:   DataFormatVcJwt,
		Protocol:     ProtocolURI,
		ProtocolPath: PathCredential,
		Schema:       SchemaCredential,
	})
	span.SetAttributes(tracer.Int64(tracer.AttrStatusCode, int64(status.Code)))
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeConnection, "record query failed")
		span.End(err)
		return nil, err
	}
	if status.Code != 200 {
		err = dErrors.New(dErrors.CodeQueryRejected, status.Detail)
		span.End(err)
		return nil, err
	}
	span.End(nil)

	loaded := make([]CredentialRecord, 0, len(records))
	for _, record := range records {
		loaded = append(loaded, CredentialRecord{RecordID: record.ID, Data: string(record.Data)})
	}
	q.logger.Info("fetched credential records", "subject_did", subjectDID, "count", len(loaded))
	return loaded, nil
}
