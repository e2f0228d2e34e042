package storage

import (
	"context"
	"errors"
	"time"

	"conduit/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// WorkflowStorage handles workflow persistence. Each workflow is one document
// holding its full node list and a version counter bumped on every node write.
type WorkflowStorage struct {
	workflowsColl Collection
	timeout       time.Duration
	logger        *zap.SugaredLogger
}

// NewWorkflowStorage creates a new workflow storage handler
func NewWorkflowStorage(mongoDB *MongoDB, logger *zap.SugaredLogger) *WorkflowStorage {
	return &WorkflowStorage{
		workflowsColl: mongoDB.Collection(core.CollectionWorkflows),
		timeout:       mongoDB.timeout,
		logger:        logger,
	}
}

func (ws *WorkflowStorage) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := ws.timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureIndexes creates the index backing the newest-first listing
func (ws *WorkflowStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	_, err := ws.workflowsColl.CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return translate(core.CollectionWorkflows, "create workflows index", err, nil)
}

// CreateWorkflow inserts an empty workflow
func (ws *WorkflowStorage) CreateWorkflow(ctx context.Context, name string) (*core.Workflow, error) {
	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	wf := &core.Workflow{
		Name:      name,
		Nodes:     []core.WorkflowNode{},
		Version:   0,
		CreatedAt: time.Now().UTC(),
	}

	result, err := ws.workflowsColl.InsertOne(ctx, wf)
	if err != nil {
		return nil, translate(core.CollectionWorkflows, "create workflow", err, nil)
	}
	wf.ID = hexID(result.InsertedID)

	ws.logger.Debugw("Created workflow", "id", wf.ID, "name", name)
	return wf, nil
}

// ListWorkflows returns a page of workflows, newest first
func (ws *WorkflowStorage) ListWorkflows(ctx context.Context, offset, limit int) ([]core.Workflow, error) {
	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := ws.workflowsColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate(core.CollectionWorkflows, "fetch workflows", err, nil)
	}
	defer cursor.Close(ctx)

	workflows := make([]core.Workflow, 0)
	if err := cursor.All(ctx, &workflows); err != nil {
		return nil, translate(core.CollectionWorkflows, "decode workflows", err, nil)
	}
	for i := range workflows {
		if workflows[i].Nodes == nil {
			workflows[i].Nodes = []core.WorkflowNode{}
		}
	}
	return workflows, nil
}

// CountWorkflows returns the number of stored workflows
func (ws *WorkflowStorage) CountWorkflows(ctx context.Context) (int64, error) {
	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	n, err := ws.workflowsColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate(core.CollectionWorkflows, "count workflows", err, nil)
	}
	return n, nil
}

// GetWorkflow retrieves a workflow by id
func (ws *WorkflowStorage) GetWorkflow(ctx context.Context, id string) (*core.Workflow, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	return ws.decode(ws.workflowsColl.FindOne(ctx, bson.M{"_id": oid}), "fetch workflow")
}

// RenameWorkflow sets the workflow name and returns the updated document
func (ws *WorkflowStorage) RenameWorkflow(ctx context.Context, id, name string) (*core.Workflow, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return ws.decode(ws.workflowsColl.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts), "rename workflow")
}

// UpdateNodes replaces the node list and bumps the version
func (ws *WorkflowStorage) UpdateNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion int64) (*core.Workflow, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []core.WorkflowNode{}
	}

	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	filter := bson.M{"_id": oid}
	switch {
	case expectedVersion == 0:
		// Documents written before versioning have no version field.
		filter["$or"] = bson.A{
			bson.M{"version": int64(0)},
			bson.M{"version": bson.M{"$exists": false}},
		}
	case expectedVersion > 0:
		filter["version"] = expectedVersion
	}
	update := bson.M{
		"$set": bson.M{"nodes": nodes, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	wf, err := ws.decode(ws.workflowsColl.FindOneAndUpdate(ctx, filter, update, opts), "update workflow nodes")
	if !errors.Is(err, core.ErrWorkflowNotFound) || expectedVersion < 0 {
		return wf, err
	}

	// No match: either the document is gone or its version moved on.
	n, countErr := ws.workflowsColl.CountDocuments(ctx, bson.M{"_id": oid})
	if countErr != nil {
		return nil, translate(core.CollectionWorkflows, "update workflow nodes", countErr, nil)
	}
	if n > 0 {
		ws.logger.Debugw("Workflow version conflict", "id", id, "expected_version", expectedVersion)
		return nil, core.ErrVersionConflict
	}
	return nil, core.ErrWorkflowNotFound
}

// DeleteWorkflow deletes a workflow by id
func (ws *WorkflowStorage) DeleteWorkflow(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := ws.opContext(ctx)
	defer cancel()

	result, err := ws.workflowsColl.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate(core.CollectionWorkflows, "delete workflow", err, nil)
	}
	if result.DeletedCount == 0 {
		return core.ErrWorkflowNotFound
	}
	return nil
}

func (ws *WorkflowStorage) decode(res SingleResult, operation string) (*core.Workflow, error) {
	var wf core.Workflow
	if err := res.Decode(&wf); err != nil {
		return nil, translate(core.CollectionWorkflows, operation, err, core.ErrWorkflowNotFound)
	}
	if wf.Nodes == nil {
		wf.Nodes = []core.WorkflowNode{}
	}
	return &wf, nil
}
