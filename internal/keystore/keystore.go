// Package keystore implements the keypair store: secp256k1 keypairs
// held as PEM-encoded files, and the ECDH+HKDF+ChaCha20Poly1305
// sealed-secret envelope used to deliver a secret to a server without
// ever exposing it to Git history.
package keystore

import (
	"context"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// KeyStore is the capability interface for a secp256k1 keypair store.
// Implementations back onto disk (OndiskKeyStore) or, in tests, onto
// memory.
type KeyStore interface {
	List(ctx context.Context) ([]string, error)
	Sign(ctx context.Context, id string, payload []byte) (string, error)
	GetPublicKey(ctx context.Context, id string) ([]byte, error)
	getPrivateKey(ctx context.Context, id string) (*secretKey, error)
	CreateKeypair(ctx context.Context, id string) error
	DeleteKeypair(ctx context.Context, id string) error
}

// errNoSuchKey is returned by implementations when id names no stored
// key.
func errNoSuchKey(id string) error {
	return taxonomy.New(taxonomy.Crypto, "no such key %q", id)
}
