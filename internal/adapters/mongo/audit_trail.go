// Package mongo keeps the reconciliation audit trail in MongoDB.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultCollection holds one document per reconciliation decision
const DefaultCollection = "ecorepay_reconciliation_audit"

const (
	connectTimeout = 5 * time.Second
	writeTimeout   = 5 * time.Second
)

// Collection is the part of *mongo.Collection the audit trail writes through
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type auditDocument struct {
	CreatedAt      time.Time `bson:"created_at"`
	ID             string    `bson:"_id"`
	RunID          string    `bson:"run_id,omitempty"`
	OrderIncrement string    `bson:"order_increment_id"`
	TransactionID  string    `bson:"transaction_id,omitempty"`
	Action         string    `bson:"action"`
	Reason         string    `bson:"reason,omitempty"`
	FromState      string    `bson:"from_state"`
	ToState        string    `bson:"to_state"`
	GatewayPayload string    `bson:"gateway_payload,omitempty"`
}

// AuditTrail implements ports.AuditTrail
type AuditTrail struct {
	coll Collection
}

var _ ports.AuditTrail = (*AuditTrail)(nil)

// NewAuditTrail writes entries to coll
func NewAuditTrail(coll Collection) *AuditTrail {
	return &AuditTrail{coll: coll}
}

// Record stores one entry. The payload must already be redacted.
func (a *AuditTrail) Record(ctx context.Context, entry ports.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	doc := auditDocument{
		CreatedAt:      entry.CreatedAt.UTC(),
		ID:             entry.ID,
		RunID:          entry.RunID,
		OrderIncrement: entry.OrderIncrement,
		TransactionID:  entry.TransactionID,
		Action:         entry.Action,
		Reason:         entry.Reason,
		FromState:      entry.FromState,
		ToState:        entry.ToState,
		GatewayPayload: entry.GatewayPayload,
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return domain.WrapError(domain.ErrorCodeDatabaseError, "insert audit entry "+entry.ID, err)
	}
	return nil
}

// Connect opens a client and checks it can reach the server
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the lookup indexes used when investigating an order or a run
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_increment_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}}},
	})
	return err
}
