package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Keyring holds the sandbox RSA signing key and its public JWKS.
// Access tokens handed to the grader are RS256 JWTs signed with it.
type Keyring struct {
	kid       string
	key       *rsa.PrivateKey
	signer    jwk.Key
	set       jwk.Set
	Generated bool
}

// Load builds a Keyring from PLATFORM_PRIVATE_KEY_B64 or PLATFORM_PRIVATE_KEY_PEM,
// generating an ephemeral 2048-bit key when neither is set.
func Load() (*Keyring, error) {
	kid := os.Getenv("PLATFORM_KID")
	if kid == "" {
		kid = uuid.NewString()
	}

	var key *rsa.PrivateKey
	if b64 := os.Getenv("PLATFORM_PRIVATE_KEY_B64"); b64 != "" {
		if der, err := base64.StdEncoding.DecodeString(b64); err == nil {
			key = parsePEM(der)
		}
	}
	if key == nil {
		if pemStr := os.Getenv("PLATFORM_PRIVATE_KEY_PEM"); pemStr != "" {
			key = parsePEM([]byte(pemStr))
		}
	}
	generated := false
	if key == nil {
		gen, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		key = gen
		generated = true
	}
	k, err := New(key, kid)
	if err != nil {
		return nil, err
	}
	k.Generated = generated
	return k, nil
}

func parsePEM(b []byte) *rsa.PrivateKey {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k
	}
	if pkcs8, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rk, ok := pkcs8.(*rsa.PrivateKey); ok {
			return rk
		}
	}
	return nil
}

// New wraps an existing key.
func New(key *rsa.PrivateKey, kid string) (*Keyring, error) {
	if key == nil {
		return nil, errors.New("keys: nil private key")
	}
	pub, err := jwk.FromRaw(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	_ = pub.Set(jwk.KeyIDKey, kid)
	_ = pub.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = pub.Set(jwk.KeyUsageKey, "sig")

	// the kid on the private JWK ends up in the signed token header
	signer, err := jwk.FromRaw(key)
	if err != nil {
		return nil, err
	}
	_ = signer.Set(jwk.KeyIDKey, kid)

	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return nil, err
	}
	return &Keyring{kid: kid, key: key, signer: signer, set: set}, nil
}

// Kid returns current key id.
func (k *Keyring) Kid() string { return k.kid }

// PEM returns the private key in PKCS1 PEM form, for persisting a generated key.
func (k *Keyring) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k.key)})
}

// JWKSJSON returns the JWKS as JSON bytes.
func (k *Keyring) JWKSJSON() ([]byte, error) {
	return json.Marshal(k.set)
}

// Mint issues an access token for subject, valid for ttl.
func (k *Keyring) Mint(issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(subject).
		Audience([]string{issuer + "/api"}).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.signer))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify checks signature, expiry and audience of an access token.
func (k *Keyring) Verify(token, issuer string) (jwt.Token, error) {
	return jwt.ParseString(token,
		jwt.WithKey(jwa.RS256, &k.key.PublicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(issuer+"/api"),
	)
}
