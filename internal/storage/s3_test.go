package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(data)) {
		return nil, errors.New("content length mismatch")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	b := &S3{client: fake, bucket: "attachments"}

	n, err := b.Save(ctx, "k.txt", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Contains(t, fake.objects, "attachments/k.txt")

	rc, err := b.Open(ctx, "k.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "payload", string(data))

	require.NoError(t, b.Remove(ctx, "k.txt"))
	_, err = b.Open(ctx, "k.txt")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, b.Remove(ctx, "k.txt"))
}

func TestS3SaveErrors(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("bucket gone")
	b := &S3{client: fake, bucket: "attachments"}

	_, err := b.Save(context.Background(), "k.txt", strings.NewReader("x"))
	assert.ErrorContains(t, err, "bucket gone")

	_, err = b.Save(context.Background(), "a/b", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNewS3(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)

	b, err := NewS3(context.Background(), S3Config{
		Bucket:    "attachments",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "admin",
		SecretKey: "secretpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, "attachments", b.bucket)
}
