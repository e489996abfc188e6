package agentpay

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// parseAgentPublicKey decodes an agent's PEM-encoded RSA public key. Both
// PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings are accepted.
func parseAgentPublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("agentpay: no PEM block found in agent public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		if rsaPub, pkcs1Err := x509.ParsePKCS1PublicKey(block.Bytes); pkcs1Err == nil {
			return rsaPub, nil
		}
		return nil, fmt.Errorf("agentpay: parse agent public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("agentpay: agent public key is %T, want RSA", pub)
	}
	return rsaPub, nil
}

// encryptAdvice serializes the advice as canonical JSON and encrypts it under
// the agent's public key with RSA-OAEP/SHA-256. The result is base64.
// Canonical serialization keeps the plaintext stable so the agent can verify
// the decrypted terms byte for byte.
func encryptAdvice(pub *rsa.PublicKey, advice PaymentAdvice) (string, error) {
	plaintext, err := canonicaljson.Marshal(advice)
	if err != nil {
		return "", fmt.Errorf("agentpay: serialize advice: %w", err)
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("agentpay: encrypt advice: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
