package service

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/michel-pi/shortly/internal/util"
)

// hashConstructors is the full set of supported KDF digests. A static
// table, the set is fixed and small.
var hashConstructors = map[string]func() hash.Hash{
	"SHA1":   sha1.New,
	"SHA256": sha256.New,
	"SHA384": sha512.New384,
	"SHA512": sha512.New,
}

// SecretDeriver stretches configured passphrases into key material with
// PBKDF2. The salt is fixed per deployment, derived from a plaintext so
// the same configuration always yields the same signing key.
type SecretDeriver struct {
	passphrase string
	salt       []byte
	iterations int
	hashNew    func() hash.Hash
}

func NewSecretDeriver(cfg *util.SecretConfig) (*SecretDeriver, error) {
	hashNew, err := hashByName(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	iterations := cfg.Iterations
	if iterations < util.MinKDFIterations {
		iterations = util.MinKDFIterations
	}

	salt := sha256.Sum256([]byte(cfg.SaltPlaintext))

	return &SecretDeriver{
		passphrase: cfg.SigningKeyPassphrase,
		salt:       salt[:],
		iterations: iterations,
		hashNew:    hashNew,
	}, nil
}

func (d *SecretDeriver) Derive(password string, length int) []byte {
	return pbkdf2.Key([]byte(password), d.salt, d.iterations, length, d.hashNew)
}

// SigningKey derives the HMAC key used to sign access tokens.
func (d *SecretDeriver) SigningKey() []byte {
	return d.Derive(d.passphrase, util.SigningKeyLength)
}

func hashByName(name string) (func() hash.Hash, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(name, "-", ""))
	hashNew, ok := hashConstructors[normalized]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q", name)
	}
	return hashNew, nil
}
