package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-offers/internal/validation"
)

type memStore map[string][]byte

func (m memStore) Load(ctx context.Context, location string) ([]byte, error) {
	return m[location], nil
}

func (m memStore) Save(ctx context.Context, location string, data []byte) error {
	m[location] = data
	return nil
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "output.json")

	require.NoError(t, FileStore{}.Save(ctx, path, []byte(`{"offers": []}`)))
	data, err := FileStore{}.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, `{"offers": []}`, string(data))
}

func TestFileStore_MissingIsInputError(t *testing.T) {
	_, err := FileStore{}.Load(context.Background(), filepath.Join(t.TempDir(), "input.json"))
	var inputErr *validation.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRouter_Dispatch(t *testing.T) {
	ctx := context.Background()
	object := memStore{}
	r := NewRouter(object)

	require.NoError(t, r.Save(ctx, "s3://bucket/output.json", []byte("x")))
	assert.Equal(t, []byte("x"), object["s3://bucket/output.json"])

	local := filepath.Join(t.TempDir(), "output.json")
	require.NoError(t, r.Save(ctx, local, []byte("y")))
	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))
}

func TestRouter_NoObjectStore(t *testing.T) {
	r := NewRouter(nil)
	_, err := r.Load(context.Background(), "s3://bucket/input.json")
	var inputErr *validation.InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestParseLocation(t *testing.T) {
	bucket, key, err := ParseLocation("s3://offers/2019/input.json")
	require.NoError(t, err)
	assert.Equal(t, "offers", bucket)
	assert.Equal(t, "2019/input.json", key)

	for _, bad := range []string{"offers/input.json", "s3://offers", "s3:///input.json"} {
		_, _, err := ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}
