package minio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/rcr/internal/config"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, string(body), objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

type UploaderTestSuite struct {
	suite.Suite
	api      *MockMinIOAPI
	client   *MinIOClient
	uploader *Uploader
	dir      string
}

func (s *UploaderTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = newMinIOClient(s.api, config.MinIOConfig{Bucket: "rcr-results", Prefix: "runs/"}, logging.NewNopLogger())
	s.uploader = NewUploader(s.client, logging.NewNopLogger())
	s.dir = s.T().TempDir()
}

func (s *UploaderTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *UploaderTestSuite) write(name, body string) string {
	p := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (s *UploaderTestSuite) TestUpload_Success() {
	result := s.write("exp1_result.csv", "Id,Direction\n")
	metrics := s.write("exp1.prom", "x 1\n")

	s.api.On("PutObject", mock.Anything, "rcr-results", "runs/exp1/exp1_result.csv", "Id,Direction\n", int64(13),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "text/csv" && o.UserMetadata["run-id"] == "exp1"
		})).
		Return(minio.UploadInfo{Bucket: "rcr-results", Key: "runs/exp1/exp1_result.csv", ETag: "e1", Size: 13}, nil).Once()
	s.api.On("PutObject", mock.Anything, "rcr-results", "runs/exp1/exp1.prom", "x 1\n", int64(4), mock.Anything).
		Return(minio.UploadInfo{Bucket: "rcr-results", Key: "runs/exp1/exp1.prom", Size: 4}, nil).Once()

	res, err := s.uploader.Upload(context.Background(), "exp1", []string{result, metrics})
	s.Require().NoError(err)
	s.Require().Len(res, 2)
	s.Equal("e1", res[0].ETag)
	s.Equal("runs/exp1/exp1.prom", res[1].ObjectKey)
}

func (s *UploaderTestSuite) TestUpload_StopsAtFirstFailure() {
	a := s.write("a.csv", "a")
	b := s.write("b.csv", "b")

	s.api.On("PutObject", mock.Anything, "rcr-results", "runs/r/a.csv", "a", int64(1), mock.Anything).
		Return(minio.UploadInfo{}, fmt.Errorf("access denied")).Once()

	res, err := s.uploader.Upload(context.Background(), "r", []string{a, b})
	s.Empty(res)
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
	s.Contains(err.Error(), "access denied")
}

func (s *UploaderTestSuite) TestUpload_MissingFile() {
	_, err := s.uploader.Upload(context.Background(), "r", []string{filepath.Join(s.dir, "nope.csv")})
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func TestUploaderTestSuite(t *testing.T) {
	suite.Run(t, new(UploaderTestSuite))
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "b").Return(true, nil)
		require.NoError(t, newMinIOClient(api, config.MinIOConfig{Bucket: "b"}, nil).EnsureBucket(ctx))
		api.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "b").Return(false, nil)
		api.On("MakeBucket", ctx, "b", minio.MakeBucketOptions{}).Return(nil)
		require.NoError(t, newMinIOClient(api, config.MinIOConfig{Bucket: "b"}, nil).EnsureBucket(ctx))
		api.AssertExpectations(t)
	})

	t.Run("check fails", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "b").Return(false, fmt.Errorf("dns"))
		err := newMinIOClient(api, config.MinIOConfig{Bucket: "b"}, nil).EnsureBucket(ctx)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("x/RUN_result.CSV"))
	assert.Equal(t, "text/plain; version=0.0.4", contentType("m.prom"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
