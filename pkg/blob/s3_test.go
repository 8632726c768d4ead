package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3API keyed by bucket-local object key.
type fakeS3 struct {
	objects map[string][]byte

	lastBucket string
	lastKey    string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastBucket = *params.Bucket
	f.lastKey = *params.Key
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_PutGetDelete(t *testing.T) {
	fake := newFakeS3()
	store := NewS3WithClient(fake, "uploads", "")
	ctx := t.Context()

	data := []byte(`[{"a":1}]`)
	require.NoError(t, store.Put(ctx, "ds-one", data))
	assert.Equal(t, "uploads", fake.lastBucket)
	assert.Equal(t, "ds-one", fake.lastKey)

	got, err := store.Get(ctx, "ds-one")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, "ds-one"))

	_, err = store.Get(ctx, "ds-one")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3_PrefixedKeys(t *testing.T) {
	fake := newFakeS3()
	store := NewS3WithClient(fake, "uploads", "datasets")
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "ds-one", []byte("data")))
	assert.Equal(t, "datasets/ds-one", fake.lastKey)

	got, err := store.Get(ctx, "ds-one")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestS3_GetMissingMapsNoSuchKey(t *testing.T) {
	store := NewS3WithClient(newFakeS3(), "uploads", "")

	_, err := store.Get(t.Context(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}
