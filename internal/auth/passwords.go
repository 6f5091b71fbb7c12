package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

var defaultArgon2idParams = argon2Params{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
	saltLen:     16,
	keyLen:      32,
}

func HashPassword(plaintext string) (string, error) {
	return hashPasswordWithParams(plaintext, defaultArgon2idParams)
}

// VerifyPassword accepts argon2id hashes produced by HashPassword and bcrypt
// hashes carried over from seeded or imported accounts.
func VerifyPassword(hash, plaintext string) (bool, error) {
	if isBcryptHash(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("bcrypt compare: %w", err)
		}
	}

	params, salt, key, err := parseArgon2idHash(hash)
	if err != nil {
		return false, err
	}

	otherKey := argon2.IDKey([]byte(plaintext), salt, params.iterations, params.memory, params.parallelism, params.keyLen)
	return subtle.ConstantTimeCompare(key, otherKey) == 1, nil
}

// dummyHash is compared against when no account exists so that an unknown
// email costs the same as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("authportal-dummy-password")
	if err != nil {
		return ""
	}
	return h
})

func CompareDummyPassword(plaintext string) {
	if h := dummyHash(); h != "" {
		_, _ = VerifyPassword(h, plaintext)
	}
}

// NeedsRehash reports whether a stored hash should be replaced with a fresh
// argon2id hash on the next successful login.
func NeedsRehash(hash string) bool {
	return isBcryptHash(hash)
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// ErrMalformedHash is returned when a stored hash is neither bcrypt nor a
// well formed argon2id PHC string.
var ErrMalformedHash = errors.New("malformed password hash")

const argon2idPrefix = "$argon2id$v=19$"

func hashPasswordWithParams(plaintext string, p argon2Params) (string, error) {
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.iterations, p.memory, p.parallelism, p.keyLen)
	return encodeArgon2id(p, salt, key), nil
}

func encodeArgon2id(p argon2Params, salt, key []byte) string {
	var b strings.Builder
	b.WriteString(argon2idPrefix)
	fmt.Fprintf(&b, "m=%d,t=%d,p=%d$", p.memory, p.iterations, p.parallelism)
	b.WriteString(base64.RawStdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(key))
	return b.String()
}

// parseArgon2idHash reads $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parseArgon2idHash(hash string) (argon2Params, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(hash, argon2idPrefix)
	if !ok {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: not argon2id v19", ErrMalformedHash)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: want params, salt and key", ErrMalformedHash)
	}

	var p argon2Params
	seen := map[string]bool{}
	for _, kv := range strings.Split(fields[0], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || seen[k] {
			return argon2Params{}, nil, nil, fmt.Errorf("%w: bad param %q", ErrMalformedHash, kv)
		}
		seen[k] = true

		bits := 32
		if k == "p" {
			bits = 8
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return argon2Params{}, nil, nil, fmt.Errorf("%w: param %s: %v", ErrMalformedHash, k, err)
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.iterations = uint32(n)
		case "p":
			p.parallelism = uint8(n)
		default:
			return argon2Params{}, nil, nil, fmt.Errorf("%w: unknown param %q", ErrMalformedHash, k)
		}
	}
	if p.memory == 0 || p.iterations == 0 || p.parallelism == 0 {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: missing param", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil || len(key) == 0 {
		return argon2Params{}, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}
