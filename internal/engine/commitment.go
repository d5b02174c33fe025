package engine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wordpot/round-engine/internal/types"
)

// saltBytes is the raw salt length; encoded salts are twice that in
// lowercase hex.
const saltBytes = 16

// Salt is a checked value type: exactly 32 lowercase hex characters.
// Malformed salts are unrepresentable; there is no repair path.
type Salt struct {
	value string
}

// NewSalt draws a fresh salt from crypto/rand.
func NewSalt() (Salt, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return Salt{}, fmt.Errorf("read random salt: %w", err)
	}
	return Salt{value: hex.EncodeToString(b)}, nil
}

// ParseSalt validates a stored salt string. Length and character set
// are checked at parse time, not discovered later.
func ParseSalt(s string) (Salt, error) {
	if len(s) != saltBytes*2 {
		return Salt{}, types.Validationf("salt must be %d characters, got %d", saltBytes*2, len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Salt{}, types.Validationf("salt contains non-hex character %q", c)
		}
	}
	return Salt{value: s}, nil
}

func (s Salt) String() string { return s.value }
func (s Salt) IsZero() bool   { return s.value == "" }

// Commitment binds the operator to a secret answer before guessing
// opens. Hash is published at round start; the answer stays sealed
// until resolution.
type Commitment struct {
	Salt Salt
	Hash string
}

// CommitHash computes hex(SHA-256(answer || salt)).
func CommitHash(answer string, salt Salt) string {
	h := sha256.Sum256([]byte(answer + salt.String()))
	return hex.EncodeToString(h[:])
}

// GenerateCommitment draws a salt and binds answer to it.
func GenerateCommitment(answer string) (Commitment, error) {
	if strings.TrimSpace(answer) == "" {
		return Commitment{}, types.Validationf("answer is empty")
	}
	salt, err := NewSalt()
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Salt: salt, Hash: CommitHash(answer, salt)}, nil
}

// VerifyCommitment recomputes the hash from the revealed answer and
// salt and compares it against the published one. A mismatch is an
// integrity violation, never silently corrected.
func VerifyCommitment(answer, salt, publishedHash string) error {
	parsed, err := ParseSalt(salt)
	if err != nil {
		return err
	}
	recomputed := CommitHash(answer, parsed)
	if subtle.ConstantTimeCompare([]byte(recomputed), []byte(publishedHash)) != 1 {
		return types.Integrityf("commitment mismatch: recomputed %s, published %s", recomputed, publishedHash)
	}
	return nil
}

// Sealer encrypts answers with AES-256-GCM under the operator key so
// they stay sealed between round start and resolution.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// NewRandomSealer generates an ephemeral key. Rounds sealed with it
// cannot be opened after a restart; production runs configure a key.
func NewRandomSealer() (*Sealer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return NewSealer(key)
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(answer string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(answer), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a sealed answer. Tampered or foreign-key ciphertext
// fails authentication and surfaces as an integrity violation.
func (s *Sealer) Unseal(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", types.Integrityf("sealed answer is not base64: %v", err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", types.Integrityf("sealed answer too short")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", types.Integrityf("unseal answer: %v", err)
	}
	return string(plain), nil
}
