// Package actioncode generates and verifies the signed, expiring,
// single-use codes that registration flows hand out over email.
//
// A code is an HS256 JWT wrapped in a URL-safe base64 layer so the wire
// form is opaque. Each code kind signs with its own secret, and a codec
// built for one kind rejects codes of every other kind. The codec is
// stateless: replay protection lives in pkg/replay, not here.
package actioncode
