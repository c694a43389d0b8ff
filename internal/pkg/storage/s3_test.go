package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestPutLog(t *testing.T) {
	putter := &fakePutter{}
	store := NewLogStoreWithClient(putter, "default-bucket")

	bucket, err := store.PutLog(context.Background(), "site-bucket", "7/99.log", []byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, "site-bucket", bucket)
	assert.Equal(t, "site-bucket", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "7/99.log", aws.ToString(putter.input.Key))
	assert.Equal(t, int64(6), aws.ToInt64(putter.input.ContentLength))
	assert.Equal(t, "hello\n", putter.body)
}

func TestPutLogDefaultBucket(t *testing.T) {
	putter := &fakePutter{}
	store := NewLogStoreWithClient(putter, "default-bucket")

	bucket, err := store.PutLog(context.Background(), "", "7/99.log", nil)
	require.NoError(t, err)
	assert.Equal(t, "default-bucket", bucket)
}

func TestPutLogError(t *testing.T) {
	store := NewLogStoreWithClient(&fakePutter{err: errors.New("disk full")}, "default-bucket")

	_, err := store.PutLog(context.Background(), "", "7/99.log", []byte("x"))
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "s3://default-bucket/7/99.log")
}
