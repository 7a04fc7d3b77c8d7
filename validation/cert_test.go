package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNitroRoot(t *testing.T) {
	root, err := nitroRoot()
	assert.NoError(t, err)
	check.Equal(t, "aws.nitro-enclaves", root.Subject.CommonName)
	check.True(t, root.IsCA)
	check.Equal(t, 2049, root.NotAfter.Year())
}

func TestValidateCertificateChain_Errors(t *testing.T) {
	signer := newTestSigner(t)
	cert := encodeDER(signer.certDER)

	// Self-signed, so it never reaches the Nitro root
	err := ValidateCertificateChain(cert, []string{cert}, attestedAt)
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "certificate chain validation failed"))

	err = ValidateCertificateChain("not base64!!", nil, time.Now())
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "signing certificate: decode"))

	err = ValidateCertificateChain(encodeDER([]byte("junk")), nil, time.Now())
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "signing certificate: parse"))

	err = ValidateCertificateChain(cert, []string{cert, "not base64!!"}, time.Now())
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "CA bundle entry 1"))
}
