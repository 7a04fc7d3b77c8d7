package enclaveapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// AttestationCOSE is a raw COSE_Sign1 attestation as returned by the NSM
type AttestationCOSE []byte

// AttestationCOSEBase64 is standard base64 of AttestationCOSE, used in JSON responses
type AttestationCOSEBase64 string

// AttestationCOSEURLBase64 is unpadded URL-safe base64 of AttestationCOSE
type AttestationCOSEURLBase64 string

// AttestationCOSEGzip is gzip-compressed AttestationCOSE in unpadded URL-safe base64,
// compact enough to travel in a URL or notification
type AttestationCOSEGzip string

func (c AttestationCOSE) EncodeBase64() AttestationCOSEBase64 {
	return AttestationCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

func (c AttestationCOSE) EncodeURLSafe() AttestationCOSEURLBase64 {
	return AttestationCOSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip compresses the COSE bytes. The output is deterministic for a given input.
func (c AttestationCOSE) CompressGzip() (AttestationCOSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(c); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return AttestationCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (b AttestationCOSEBase64) String() string {
	return string(b)
}

func (b AttestationCOSEBase64) Decode() (AttestationCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return AttestationCOSE(data), nil
}

func (b AttestationCOSEBase64) CompressGzip() (AttestationCOSEGzip, error) {
	cose, err := b.Decode()
	if err != nil {
		return "", err
	}
	return cose.CompressGzip()
}

func (u AttestationCOSEURLBase64) String() string {
	return string(u)
}

// Decode accepts both padded and unpadded input
func (u AttestationCOSEURLBase64) Decode() (AttestationCOSE, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(u), "="))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return AttestationCOSE(data), nil
}

func (g AttestationCOSEGzip) String() string {
	return string(g)
}

func (g AttestationCOSEGzip) Decompress() (AttestationCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(g), "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	return AttestationCOSE(data), nil
}
