package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mockCollection is a testify mock of Collection. Variadic options are
// recorded as a single slice argument.
type mockCollection struct {
	mock.Mock
}

func (m *mockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	args := m.Called(ctx, filter, opts)
	if c := args.Get(0); c != nil {
		return c.(Cursor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	args := m.Called(ctx, filter, opts)
	return args.Get(0).(SingleResult)
}

func (m *mockCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) SingleResult {
	args := m.Called(ctx, filter, update, opts)
	return args.Get(0).(SingleResult)
}

func (m *mockCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document, opts)
	if r := args.Get(0); r != nil {
		return r.(*mongo.InsertOneResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	args := m.Called(ctx, filter, opts)
	if r := args.Get(0); r != nil {
		return r.(*mongo.DeleteResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	args := m.Called(ctx, filter, opts)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCollection) CreateIndex(ctx context.Context, model mongo.IndexModel) (string, error) {
	args := m.Called(ctx, model)
	return args.String(0), args.Error(1)
}

// fakeCursor hands a prepared slice to All
type fakeCursor struct {
	all    func(results interface{}) error
	closed bool
}

func (c *fakeCursor) All(_ context.Context, results interface{}) error { return c.all(results) }
func (c *fakeCursor) Close(context.Context) error                    { c.closed = true; return nil }
func (c *fakeCursor) Err() error                                     { return nil }
func (c *fakeCursor) Next(context.Context) bool                      { return false }
func (c *fakeCursor) Decode(interface{}) error                       { return nil }

// fakeResult decodes through a callback
type fakeResult struct {
	decode func(v interface{}) error
}

func (r fakeResult) Decode(v interface{}) error { return r.decode(v) }

func errResult(err error) fakeResult {
	return fakeResult{decode: func(interface{}) error { return err }}
}
