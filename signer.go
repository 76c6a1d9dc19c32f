// FILE: signer.go
// Package main – Request-signing layer for the brokerage API.
//
// CredentialSigner turns (method, path, body, now) plus secret material into
// the auth headers for one outbound request. Two interchangeable schemes:
//   • JWTSigner  – ES256 claims token (iss, sub=key-id, nbf=now,
//     exp=now+120s, uri="METHOD host path"), kid and a random 128-bit nonce
//     in the token header, attached as a Bearer credential.
//   • HMACSigner – SHA-256 HMAC over the prehash timestamp+METHOD+path+body,
//     attached as CB-ACCESS-KEY / CB-ACCESS-SIGN / CB-ACCESS-TIMESTAMP.
//
// Tokens are valid for exactly two minutes; callers must mint per request
// and never cache or log credentials. Signing depends on nothing but the
// arguments and the clock, which keeps both schemes independently testable.

package main

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtValidity is fixed by the brokerage: tokens expire 120 s after minting.
const jwtValidity = 2 * time.Minute

// CredentialSigner produces auth headers for one signed request.
type CredentialSigner interface {
	Credentials(method, path string, body []byte) (http.Header, error)
}

// signerFromConfig selects a scheme by which secret material is present.
// Asymmetric key material wins when both are configured.
func signerFromConfig(cfg Config) (CredentialSigner, error) {
	if cfg.KeyName != "" && cfg.PrivateKeyPEM != "" {
		host := apiHost(cfg.APIBase)
		return NewJWTSigner(cfg.KeyName, cfg.PrivateKeyPEM, host)
	}
	if cfg.APIKey != "" && cfg.APISecret != "" {
		return NewHMACSigner(cfg.APIKey, cfg.APISecret), nil
	}
	return nil, ErrNoCredentials
}

// apiHost strips the scheme from an API base URL for the JWT uri claim.
func apiHost(base string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
	return strings.TrimRight(h, "/")
}

// ---------- Asymmetric claims token ----------

// JWTSigner mints a short-lived ES256 token per request.
type JWTSigner struct {
	keyName string
	key     *ecdsa.PrivateKey
	host    string
	now     func() time.Time
}

func NewJWTSigner(keyName, privatePEM, host string) (*JWTSigner, error) {
	key, err := parseECPrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	return &JWTSigner{keyName: keyName, key: key, host: host, now: time.Now}, nil
}

func (s *JWTSigner) Credentials(method, path string, body []byte) (http.Header, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sign: nonce: %w", err)
	}
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss": "cdp",
		"sub": s.keyName,
		"nbf": now.Unix(),
		"exp": now.Add(jwtValidity).Unix(),
		"uri": fmt.Sprintf("%s %s%s", strings.ToUpper(method), s.host, path),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = s.keyName
	t.Header["nonce"] = hex.EncodeToString(nonce)

	token, err := t.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// parseECPrivateKey accepts SEC1 ("EC PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks holding a P-256 key.
func parseECPrivateKey(privatePEM string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return nil, errors.New("invalid private key (no PEM block)")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an EC private key")
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}

// ---------- Symmetric prehash HMAC ----------

// HMACSigner signs the timestamp+METHOD+path+body prehash with a shared
// secret and attaches the pieces as separate headers.
type HMACSigner struct {
	apiKey string
	secret string
	now    func() time.Time
}

func NewHMACSigner(apiKey, secret string) *HMACSigner {
	return &HMACSigner{apiKey: apiKey, secret: secret, now: time.Now}
}

func (s *HMACSigner) Credentials(method, path string, body []byte) (http.Header, error) {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	prehash := ts + strings.ToUpper(method) + path + string(body)
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(prehash))

	h := http.Header{}
	h.Set("CB-ACCESS-KEY", s.apiKey)
	h.Set("CB-ACCESS-SIGN", hex.EncodeToString(mac.Sum(nil)))
	h.Set("CB-ACCESS-TIMESTAMP", ts)
	return h, nil
}
