package validation

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"sync"
	"time"
)

// nitroRootPEM is AWS_NitroEnclaves_Root-G1 (P-384, expires 2049-10-28),
// published at https://docs.aws.amazon.com/enclaves/latest/user/verify-root.html
const nitroRootPEM = `-----BEGIN CERTIFICATE-----
MIICETCCAZagAwIBAgIRAPkxdWgbkK/hHUbMtOTn+FYwCgYIKoZIzj0EAwMwSTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoMBkFtYXpvbjEMMAoGA1UECwwDQVdTMRswGQYD
VQQDDBJhd3Mubml0cm8tZW5jbGF2ZXMwHhcNMTkxMDI4MTMyODA1WhcNNDkxMDI4
MTQyODA1WjBJMQswCQYDVQQGEwJVUzEPMA0GA1UECgwGQW1hem9uMQwwCgYDVQQL
DANBV1MxGzAZBgNVBAMMEmF3cy5uaXRyby1lbmNsYXZlczB2MBAGByqGSM49AgEG
BSuBBAAiA2IABPwCVOumCMHzaHDimtqQvkY4MpJzbolL//Zy2YlES1BR5TSksfbb
48C8WBoyt7F2Bw7eEtaaP+ohG2bnUs990d0JX28TcPQXCEPZ3BABIeTPYwEoCWZE
h8l5YoQwTcU/9KNCMEAwDwYDVR0TAQH/BAUwAwEB/zAdBgNVHQ4EFgQUkCW1DdkF
R+eWw5b6cp3PmanfS5YwDgYDVR0PAQH/BAQDAgGGMAoGCCqGSM49BAMDA2kAMGYC
MQCjfy+Rocm9Xue4YnwWmNJVA44fA0P5W2OpYow9OYCVRaEevL8uO1XYru5xtMPW
rfMCMQCi85sWBbJwKKXdS6BptQFuZbT73o/gBh1qUxl/nNr12UO8Yfwr6wPLb+6N
IwLz3/Y=
-----END CERTIFICATE-----`

var nitroRoot = sync.OnceValues(func() (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(nitroRootPEM))
	if block == nil {
		return nil, fmt.Errorf("nitro root: no PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
})

func parseBase64Certificate(b64 string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return cert, nil
}

// ValidateCertificateChain checks that the enclave signing certificate chains
// through the attestation's CA bundle to the Nitro root, as of at (the
// attestation timestamp, so archived settlements stay verifiable after the
// short-lived enclave certificate expires).
func ValidateCertificateChain(certB64 string, caBundleB64 []string, at time.Time) error {
	leaf, err := parseBase64Certificate(certB64)
	if err != nil {
		return fmt.Errorf("signing certificate: %w", err)
	}

	bundle := x509.NewCertPool()
	for i, b64 := range caBundleB64 {
		ca, err := parseBase64Certificate(b64)
		if err != nil {
			return fmt.Errorf("CA bundle entry %d: %w", i, err)
		}
		bundle.AddCert(ca)
	}

	root, err := nitroRoot()
	if err != nil {
		return err
	}
	roots := x509.NewCertPool()
	roots.AddCert(root)

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: bundle,
		CurrentTime:   at,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("certificate chain validation failed: %w", err)
	}
	return nil
}
