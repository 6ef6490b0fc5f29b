package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCollection struct {
	docs []interface{}
	err  error
	ctx  context.Context
}

func (f *fakeCollection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, document)
	return &mongo.InsertOneResult{InsertedID: document.(auditDocument).ID}, nil
}

func TestAuditTrail_Record(t *testing.T) {
	coll := &fakeCollection{}
	trail := NewAuditTrail(coll)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))

	err := trail.Record(context.Background(), ports.AuditEntry{
		ID:             "a1",
		RunID:          "run-1",
		CreatedAt:      at,
		OrderIncrement: "100000042",
		TransactionID:  "T-42",
		Action:         "processing",
		Reason:         "We received your payment, thank you!",
		FromState:      "pending_payment",
		ToState:        "processing",
		GatewayPayload: "<Response><Status>Processed</Status></Response>",
	})
	require.NoError(t, err)

	require.Len(t, coll.docs, 1)
	doc := coll.docs[0].(auditDocument)
	assert.Equal(t, "a1", doc.ID)
	assert.Equal(t, "100000042", doc.OrderIncrement)
	assert.Equal(t, at.UTC(), doc.CreatedAt)
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())

	_, hasDeadline := coll.ctx.Deadline()
	assert.True(t, hasDeadline, "writes are bounded")
}

func TestAuditTrail_RecordErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "write_failure", err: errors.New("server selection timeout"), wantErr: true},
		{
			name:    "duplicate_is_idempotent",
			err:     mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trail := NewAuditTrail(&fakeCollection{err: tt.err})

			err := trail.Record(context.Background(), ports.AuditEntry{ID: "a1"})

			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrDatabaseError))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConnect_EmptyURI(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}
