package minio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// failingReader fails on the first read, as a minio object does for a
// missing key.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
func (r failingReader) Close() error             { return nil }

type StoreTestSuite struct {
	suite.Suite
	api   *MockObjectAPI
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.store = NewStore(s.api, Config{Bucket: "datasets", Prefix: "shiftgraph"}, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TestObjectName() {
	s.Equal("shiftgraph/processed/carbon_dataset.pb.zst", s.store.ObjectName("processed/carbon_dataset.pb.zst"))
	s.Equal("minio", s.store.Name())
}

func (s *StoreTestSuite) TestExists() {
	s.api.On("StatObject", s.ctx, "datasets", "shiftgraph/a", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Key: "shiftgraph/a"}, nil)
	s.api.On("StatObject", s.ctx, "datasets", "shiftgraph/b", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", s.ctx, "datasets", "shiftgraph/c", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "AccessDenied"})

	ok, err := s.store.Exists(s.ctx, "a")
	s.NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(s.ctx, "b")
	s.NoError(err)
	s.False(ok)

	_, err = s.store.Exists(s.ctx, "c")
	s.True(errors.IsCode(err, errors.CodeCacheRead))
}

func (s *StoreTestSuite) TestGet() {
	s.api.On("GetObject", s.ctx, "datasets", "shiftgraph/a", minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader([]byte("blob"))), nil)

	data, err := s.store.Get(s.ctx, "a")
	s.NoError(err)
	s.Equal([]byte("blob"), data)
}

func (s *StoreTestSuite) TestGetMissing() {
	s.api.On("GetObject", s.ctx, "datasets", "shiftgraph/a", minio.GetObjectOptions{}).
		Return(failingReader{err: minio.ErrorResponse{Code: "NoSuchKey"}}, nil)

	_, err := s.store.Get(s.ctx, "a")
	s.True(errors.IsCode(err, errors.CodeObjectNotFound))
}

func (s *StoreTestSuite) TestPut() {
	s.api.On("PutObject", s.ctx, "datasets", "shiftgraph/a", mock.Anything, int64(4), mock.Anything).
		Return(minio.UploadInfo{Size: 4}, nil)
	s.NoError(s.store.Put(s.ctx, "a", []byte("blob")))
	s.api.AssertExpectations(s.T())
}

func (s *StoreTestSuite) TestPutFailure() {
	s.api.On("PutObject", s.ctx, "datasets", "shiftgraph/a", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, assert.AnError)
	err := s.store.Put(s.ctx, "a", []byte("x"))
	s.True(errors.IsCode(err, errors.CodeCacheWrite))
}

func (s *StoreTestSuite) TestRejectsBadKey() {
	s.Error(s.store.Put(s.ctx, "../a", nil))
	s.api.AssertNotCalled(s.T(), "PutObject")
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
