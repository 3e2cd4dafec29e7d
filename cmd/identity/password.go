package identity

import (
	"errors"

	"carelink/cmd/security/password"
)

// Password hashing for the credential store.
//
// cmd/security/password is the single source of truth for Argon2id
// parameters, password policy, and strict PHC decoding. identity only
// pins a historical baseline: minimum 8 characters, so the env policy can
// tighten but never weaken it.

func hashingConfig() (password.Config, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return password.Config{}, err
	}
	if cfg.Policy.MinLength < 8 {
		cfg.Policy.MinLength = 8
	}
	if cfg.Policy.MaxLength <= 0 {
		cfg.Policy.MaxLength = 256
	}
	return cfg, nil
}

// HashPassword returns a PHC-style Argon2id hash string for plain.
func HashPassword(plain string) (string, error) {
	cfg, err := hashingConfig()
	if err != nil {
		return "", err
	}

	enc, err := cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return "", OpError{Op: "identity.HashPassword", Kind: ErrInvalidInput, Msg: "password too short"}
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: "identity.HashPassword", Kind: ErrInvalidInput, Msg: "password too long"}
		default:
			return "", err
		}
	}
	return enc, nil
}

// CheckPassword verifies plain against a PHC Argon2id hash.
// Malformed hashes verify as false rather than erroring, so a corrupted
// credential row behaves like a wrong password (fail closed).
func CheckPassword(plain, encodedPHC string) (bool, error) {
	cfg, err := hashingConfig()
	if err != nil {
		return false, err
	}

	ok, err := cfg.Verify(encodedPHC, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// dummyCredentialHash produces a throwaway hash used to equalize timing when
// verifying a password for an email that has no credential.
func dummyCredentialHash() string {
	h, err := HashPassword("carelink-timing-equalizer")
	if err != nil {
		return ""
	}
	return h
}
