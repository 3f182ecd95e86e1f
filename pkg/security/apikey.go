// Package security issues and verifies the ingest API key. Only an Argon2id
// hash of the key, in PHC string form, is kept in configuration.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/tripcreators/creator-wallet/pkg/config"
)

const apiKeyPrefix = "cwk_"

// ErrInvalidHash signals a malformed or unsupported Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// paramsFor clamps configured costs into a range that is safe to run per
// request.
func paramsFor(cfg config.IngestConfig) argonParams {
	return argonParams{
		memory:  uint32(min(max(cfg.ArgonMemoryKB, 8), 512*1024)),
		time:    uint32(min(max(cfg.ArgonTime, 1), 10)),
		threads: uint8(min(max(cfg.ArgonParallelism, 1), 255)),
		saltLen: uint32(min(max(cfg.ArgonSaltLen, 8), 64)),
		keyLen:  uint32(min(max(cfg.ArgonKeyLen, 16), 64)),
	}
}

func (p argonParams) derive(key string, salt []byte) []byte {
	return argon2.IDKey([]byte(key), salt, p.time, p.memory, p.threads, p.keyLen)
}

// GenerateAPIKey returns a random ingest key with the cwk_ prefix.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey encodes key as $argon2id$v=19$m=..,t=..,p=..$salt$hash.
func HashAPIKey(key string, cfg config.IngestConfig) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("api key cannot be empty")
	}
	p := paramsFor(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(p.derive(key, salt)),
	), nil
}

// VerifyAPIKey re-derives key with the parameters stored in encoded and
// compares in constant time.
func VerifyAPIKey(key, encoded string) (bool, error) {
	p, salt, want, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.derive(key, salt)) == 1, nil
}

func parsePHC(encoded string) (argonParams, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	salt, saltErr := base64.RawStdEncoding.DecodeString(fields[4])
	hash, hashErr := base64.RawStdEncoding.DecodeString(fields[5])
	if saltErr != nil || hashErr != nil || len(hash) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(hash))
	return p, salt, hash, nil
}
