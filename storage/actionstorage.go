package storage

import (
	"context"
	"time"

	"conduit/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ActionStorage handles saved action persistence and retrieval
type ActionStorage struct {
	actionsColl Collection
	timeout     time.Duration
	logger      *zap.SugaredLogger
}

// NewActionStorage creates a new action storage handler
func NewActionStorage(mongoDB *MongoDB, logger *zap.SugaredLogger) *ActionStorage {
	return &ActionStorage{
		actionsColl: mongoDB.Collection(core.CollectionActions),
		timeout:     mongoDB.timeout,
		logger:      logger,
	}
}

func (as *ActionStorage) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := as.timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureIndexes creates the index backing the newest-first listing
func (as *ActionStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := as.opContext(ctx)
	defer cancel()

	_, err := as.actionsColl.CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return translate(core.CollectionActions, "create actions index", err, nil)
}

// CreateAction inserts a new action and returns its id
func (as *ActionStorage) CreateAction(ctx context.Context, action *core.Action) (string, error) {
	ctx, cancel := as.opContext(ctx)
	defer cancel()

	doc := *action
	doc.ID = ""
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	result, err := as.actionsColl.InsertOne(ctx, &doc)
	if err != nil {
		return "", translate(core.CollectionActions, "save action", err, nil)
	}

	id := hexID(result.InsertedID)
	as.logger.Debugw("Saved action", "id", id, "method", doc.Method, "collection", doc.CollectionKey)
	return id, nil
}

// ListActions returns a page of actions, newest first
func (as *ActionStorage) ListActions(ctx context.Context, offset, limit int) ([]core.Action, error) {
	ctx, cancel := as.opContext(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := as.actionsColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate(core.CollectionActions, "fetch actions", err, nil)
	}
	defer cursor.Close(ctx)

	actions := make([]core.Action, 0)
	if err := cursor.All(ctx, &actions); err != nil {
		return nil, translate(core.CollectionActions, "decode actions", err, nil)
	}
	return actions, nil
}

// CountActions returns the number of stored actions
func (as *ActionStorage) CountActions(ctx context.Context) (int64, error) {
	ctx, cancel := as.opContext(ctx)
	defer cancel()

	n, err := as.actionsColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate(core.CollectionActions, "count actions", err, nil)
	}
	return n, nil
}

// GetAction retrieves a single action by id
func (as *ActionStorage) GetAction(ctx context.Context, id string) (*core.Action, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := as.opContext(ctx)
	defer cancel()

	var action core.Action
	if err := as.actionsColl.FindOne(ctx, bson.M{"_id": oid}).Decode(&action); err != nil {
		return nil, translate(core.CollectionActions, "fetch action", err, core.ErrActionNotFound)
	}
	return &action, nil
}

// DeleteAction deletes an action by id
func (as *ActionStorage) DeleteAction(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := as.opContext(ctx)
	defer cancel()

	result, err := as.actionsColl.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate(core.CollectionActions, "delete action", err, nil)
	}
	if result.DeletedCount == 0 {
		return core.ErrActionNotFound
	}
	return nil
}
