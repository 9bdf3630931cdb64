package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ValentinKolb/dCrate/lib/digest"
	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/transport"
	"github.com/pkg/errors"
)

// BlobContainer gives access to the blobs of one blob table. Blobs are
// addressed by the SHA-1 digest of their content.
type BlobContainer struct {
	name   string
	client *Client
}

// BlobContainer returns the container for the blob table name
func (c *Client) BlobContainer(name string) (*BlobContainer, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" || strings.Contains(name, "/") {
		return nil, common.NewProgrammingError("invalid blob container name %q", name)
	}
	return &BlobContainer{name: name, client: c}, nil
}

// Name returns the name of the blob table
func (b *BlobContainer) Name() string {
	return b.name
}

// --------------------------------------------------------------------------
// Blob Operations
// --------------------------------------------------------------------------

// Exists reports whether a blob with the given digest is stored
func (b *BlobContainer) Exists(ctx context.Context, d string) (bool, error) {
	if err := b.check(d); err != nil {
		return false, err
	}

	var exists bool
	err := b.run(ctx, "blob_exists", func(ctx context.Context, node serverset.Node) error {
		resp, err := b.send(ctx, node, http.MethodHead, d, nil, 0)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			exists = true
			return nil
		case http.StatusNotFound:
			exists = false
			return nil
		case http.StatusBadRequest:
			// HEAD responses have no body to inspect
			return errors.Wrapf(common.ErrBlobsDisabled, "container %s", b.name)
		default:
			return statusFailure(resp)
		}
	})
	return exists, err
}

// Put stores the content read from r and returns its digest. The digest is
// computed in a single pass, content that cannot be rewound is spooled to a
// temporary file. Storing content that is already present is not an error.
func (b *BlobContainer) Put(ctx context.Context, r io.Reader) (string, error) {
	if err := b.client.checkOpen(); err != nil {
		return "", err
	}

	src, err := digest.NewSource(r, b.client.config.SpoolDir)
	if err != nil {
		return "", errors.Wrap(err, "reading blob content")
	}
	defer src.Close()

	if _, err := b.upload(ctx, src); err != nil {
		return "", err
	}
	return src.Digest(), nil
}

// PutDigest stores the content read from r under the digest d. The content
// is verified against d before anything is sent. created is false if the
// blob was already stored.
func (b *BlobContainer) PutDigest(ctx context.Context, d string, r io.Reader) (created bool, err error) {
	if err := b.check(d); err != nil {
		return false, err
	}

	src, err := digest.NewSource(r, b.client.config.SpoolDir)
	if err != nil {
		return false, errors.Wrap(err, "reading blob content")
	}
	defer src.Close()

	if src.Digest() != d {
		return false, errors.Wrapf(common.ErrDigestMismatch, "expected %s, content has %s", d, src.Digest())
	}
	return b.upload(ctx, src)
}

// Get returns the content of the blob. The caller must close the reader.
func (b *BlobContainer) Get(ctx context.Context, d string) (io.ReadCloser, error) {
	if err := b.check(d); err != nil {
		return nil, err
	}

	var body io.ReadCloser
	err := b.run(ctx, "blob_get", func(ctx context.Context, node serverset.Node) error {
		resp, err := b.send(ctx, node, http.MethodGet, d, nil, 0)
		if err != nil {
			return err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body = resp.Body
			return nil
		case http.StatusNotFound:
			resp.Body.Close()
			return errors.Wrapf(common.ErrDigestNotFound, "%s/%s", b.name, d)
		case http.StatusBadRequest:
			defer resp.Body.Close()
			se := readStatusError(resp)
			if isBlobsDisabled(se) {
				return errors.Wrapf(common.ErrBlobsDisabled, "container %s", b.name)
			}
			return &common.ProgrammingError{Message: se.Error(), Err: se}
		default:
			defer resp.Body.Close()
			return statusFailure(resp)
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes the blob. It reports false if there was no such blob.
func (b *BlobContainer) Delete(ctx context.Context, d string) (bool, error) {
	if err := b.check(d); err != nil {
		return false, err
	}

	var deleted bool
	err := b.run(ctx, "blob_delete", func(ctx context.Context, node serverset.Node) error {
		resp, err := b.send(ctx, node, http.MethodDelete, d, nil, 0)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent, http.StatusOK:
			deleted = true
			return nil
		case http.StatusNotFound:
			deleted = false
			return nil
		case http.StatusBadRequest:
			se := readStatusError(resp)
			if isBlobsDisabled(se) {
				return errors.Wrapf(common.ErrBlobsDisabled, "container %s", b.name)
			}
			return &common.ProgrammingError{Message: se.Error(), Err: se}
		default:
			return statusFailure(resp)
		}
	})
	return deleted, err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// upload streams the source to the server, each attempt re-reads and
// re-verifies the content
func (b *BlobContainer) upload(ctx context.Context, src *digest.Source) (created bool, err error) {
	d := src.Digest()

	err = b.run(ctx, "blob_put", func(ctx context.Context, node serverset.Node) error {
		body, err := src.Open()
		if err != nil {
			return errors.Wrap(err, "opening blob content")
		}

		var reqBody io.Reader = body
		if src.Size() == 0 {
			reqBody = http.NoBody
		}

		resp, err := b.send(ctx, node, http.MethodPut, d, reqBody, src.Size())
		if errors.Is(body.Err(), digest.ErrContentChanged) {
			if resp != nil {
				resp.Body.Close()
			}
			return errors.Wrapf(common.ErrDigestMismatch, "content changed while uploading %s", d)
		}
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated, http.StatusOK:
			created = true
			return nil
		case http.StatusConflict, http.StatusBadRequest:
			se := readStatusError(resp)
			if isDigestMismatch(se) {
				return errors.Wrapf(common.ErrDigestMismatch, "server rejected %s: %s", d, se.Message)
			}
			if se.StatusCode == http.StatusConflict {
				Logger.Debugf("blob %s/%s already exists", b.name, d)
				created = false
				return nil
			}
			if isBlobsDisabled(se) {
				return errors.Wrapf(common.ErrBlobsDisabled, "container %s", b.name)
			}
			return &common.ProgrammingError{Message: se.Error(), Err: se}
		default:
			return statusFailure(resp)
		}
	})
	return created, err
}

func (b *BlobContainer) check(d string) error {
	if err := b.client.checkOpen(); err != nil {
		return err
	}
	if !digest.Valid(d) {
		return errors.Wrapf(common.ErrInvalidDigest, "%q", d)
	}
	return nil
}

func (b *BlobContainer) run(ctx context.Context, op string, attempt attemptFunc) error {
	return b.client.coordinator.Run(ctx, op, attempt)
}

func (b *BlobContainer) send(ctx context.Context, node serverset.Node, method, d string, body io.Reader, size int64) (*transport.Response, error) {
	return b.client.transport.Send(ctx, node, &transport.Request{
		Method:        method,
		Path:          common.BlobsPath + "/" + url.PathEscape(b.name) + "/" + d,
		Body:          body,
		ContentLength: size,
		Streaming:     method == http.MethodGet || method == http.MethodPut,
	})
}
