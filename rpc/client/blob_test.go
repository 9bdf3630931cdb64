package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/ValentinKolb/dCrate/lib/digest"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/server"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDigest = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

func newBlobContainer(t *testing.T, config common.ServerConfig) (*BlobContainer, *server.Node) {
	t.Helper()
	node, addr := newTestNode(t, config)
	conn := newTestConnection(t, testConfig(addr))

	if !config.BlobsDisabled {
		cursor, err := conn.Cursor()
		require.NoError(t, err)
		require.NoError(t, cursor.Execute(context.Background(),
			"create blob table myfiles clustered into 1 shards with (number_of_replicas=0)"))
	}

	container, err := conn.BlobContainer("myfiles")
	require.NoError(t, err)
	return container, node
}

// changingReader yields "hello" until it is rewound, "jello" afterwards
type changingReader struct {
	r *strings.Reader
}

func newChangingReader() *changingReader {
	return &changingReader{r: strings.NewReader("hello")}
}

func (c *changingReader) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *changingReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart && offset == 0 {
		c.r = strings.NewReader("jello")
	}
	return c.r.Seek(offset, whence)
}

func TestPutGetExistsDelete(t *testing.T) {
	container, _ := newBlobContainer(t, common.ServerConfig{})
	ctx := context.Background()

	exists, err := container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, exists)

	d, err := container.Put(ctx, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, helloDigest, d)

	exists, err = container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := container.Get(ctx, helloDigest)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(content))

	deleted, err := container.Delete(ctx, helloDigest)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = container.Delete(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = container.Get(ctx, helloDigest)
	assert.ErrorIs(t, err, common.ErrDigestNotFound)
}

func TestPutExistingBlob(t *testing.T) {
	container, _ := newBlobContainer(t, common.ServerConfig{})
	ctx := context.Background()

	created, err := container.PutDigest(ctx, helloDigest, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = container.PutDigest(ctx, helloDigest, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.False(t, created)

	d, err := container.Put(ctx, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, helloDigest, d)
}

func TestPutDigestMismatchBeforeNetwork(t *testing.T) {
	container, node := newBlobContainer(t, common.ServerConfig{})
	ctx := context.Background()

	_, err := container.PutDigest(ctx, helloDigest, strings.NewReader("jello"))
	assert.ErrorIs(t, err, common.ErrDigestMismatch)

	_, err = container.PutDigest(ctx, "not-a-digest", strings.NewReader("hello"))
	assert.ErrorIs(t, err, common.ErrInvalidDigest)
	_, err = container.Exists(ctx, strings.ToUpper(helloDigest))
	assert.ErrorIs(t, err, common.ErrInvalidDigest)

	exists, err := container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, exists)

	// create blob table + one HEAD
	assert.EqualValues(t, 2, node.Requests())
}

func TestPutContentChangedDuringUpload(t *testing.T) {
	container, _ := newBlobContainer(t, common.ServerConfig{})
	ctx := context.Background()

	_, err := container.Put(ctx, newChangingReader())
	assert.ErrorIs(t, err, common.ErrDigestMismatch)

	exists, err := container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPutRejectedByServerDigestCheck(t *testing.T) {
	var puts atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			puts.Add(1)
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":4095,"message":"DigestMismatchException[digest of content does not match]"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	conn := newTestConnection(t, testConfig(strings.TrimPrefix(ts.URL, "http://")))
	container, err := conn.BlobContainer("myfiles")
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = container.Put(ctx, strings.NewReader("hello"))
	assert.True(t, errors.Is(err, common.ErrDigestMismatch), "got %v", err)
	assert.EqualValues(t, 1, puts.Load())

	exists, err = container.Exists(ctx, helloDigest)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPutSpoolsUnseekableContent(t *testing.T) {
	spoolDir := t.TempDir()
	_, addr := newTestNode(t, common.ServerConfig{})
	config := testConfig(addr)
	config.SpoolDir = spoolDir
	conn := newTestConnection(t, config)

	cursor, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cursor.Execute(context.Background(), "create blob table myfiles"))
	container, err := conn.BlobContainer("myfiles")
	require.NoError(t, err)

	content := bytes.Repeat([]byte("0123456789abcdef"), 3*digest.ChunkSize/16+3)
	d, err := container.Put(context.Background(), iotest.OneByteReader(bytes.NewReader(content)))
	require.NoError(t, err)
	assert.Equal(t, digest.Of(content), d)

	r, err := container.Get(context.Background(), d)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutEmptyBlob(t *testing.T) {
	container, _ := newBlobContainer(t, common.ServerConfig{})

	d, err := container.Put(context.Background(), bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, digest.Of(nil), d)

	exists, err := container.Exists(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBlobsDisabled(t *testing.T) {
	container, _ := newBlobContainer(t, common.ServerConfig{BlobsDisabled: true})
	ctx := context.Background()

	_, err := container.Exists(ctx, helloDigest)
	assert.ErrorIs(t, err, common.ErrBlobsDisabled)

	_, err = container.Get(ctx, helloDigest)
	assert.ErrorIs(t, err, common.ErrBlobsDisabled)

	_, err = container.Put(ctx, strings.NewReader("hello"))
	assert.ErrorIs(t, err, common.ErrBlobsDisabled)

	_, err = container.Delete(ctx, helloDigest)
	assert.ErrorIs(t, err, common.ErrBlobsDisabled)
}

func TestUnknownBlobTable(t *testing.T) {
	_, addr := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(addr))
	container, err := conn.BlobContainer("missing")
	require.NoError(t, err)

	_, err = container.Put(context.Background(), strings.NewReader("hello"))
	var pe *common.ProgrammingError
	assert.True(t, errors.As(err, &pe), "got %v", err)

	_, err = conn.BlobContainer("a/b")
	assert.True(t, errors.As(err, &pe))
}
