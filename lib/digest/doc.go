// Package digest implements the content addressing used by CrateDB blob
// tables: every blob is identified by the lowercase hex SHA-1 digest of its
// content.
//
// The central type is Source, which prepares arbitrary content for an upload
// in a single pass: the digest has to be known before the first byte is sent
// (it is part of the upload URL), but the content must not be held in memory.
//
//   - Seekable content (files, bytes.Reader, ...) is hashed in place and
//     rewound.
//   - Any other stream is copied to a temporary spool file while it is being
//     hashed, so every byte of the stream is read exactly once.
//
// Every upload attempt reads the content through a verifying reader that
// hashes the bytes again on the way to the network and fails with
// ErrContentChanged at EOF if they no longer match the digest.
package digest
