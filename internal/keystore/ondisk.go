package keystore

import (
	"context"
	"encoding/pem"
	"os"
	"path/filepath"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/spf13/afero"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

const pemBlockType = "EC PRIVATE KEY"

// secretKey is the parsed form of a stored keypair.
type secretKey struct {
	priv *secp256k1.PrivateKey
}

func (s *secretKey) pubKey() *secp256k1.PublicKey { return s.priv.PubKey() }

// OndiskKeyStore stores secp256k1 keypairs as raw-scalar PEM files
// beneath a directory, one file per id named "<id>.pem". The directory
// must already exist; if it is empty on construction a "main" keypair
// is created automatically.
type OndiskKeyStore struct {
	fs     afero.Fs
	keyDir string
}

var _ KeyStore = (*OndiskKeyStore)(nil)

// NewOndisk opens an on-disk key store rooted at keyDir. keyDir must
// already exist.
func NewOndisk(ctx context.Context, fs afero.Fs, keyDir string) (*OndiskKeyStore, error) {
	info, err := fs.Stat(keyDir)
	if err != nil || !info.IsDir() {
		return nil, taxonomy.New(taxonomy.Crypto, "no key store found at %s", keyDir)
	}
	ks := &OndiskKeyStore{fs: fs, keyDir: keyDir}

	ids, err := ks.List(ctx)
	if err == nil && len(ids) == 0 {
		if err := ks.CreateKeypair(ctx, "main"); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

func (k *OndiskKeyStore) keyPath(id string) string {
	return filepath.Join(k.keyDir, id+".pem")
}

// List returns the ids of every valid keypair found in the store
// directory, skipping and logging (via a returned partial list) any
// file that fails to parse.
func (k *OndiskKeyStore) List(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(k.fs, k.keyDir)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "listing key store %s", k.keyDir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pem" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".pem")]
		if _, err := k.load(id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (k *OndiskKeyStore) load(id string) (*secretKey, error) {
	raw, err := afero.ReadFile(k.fs, k.keyPath(id))
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "reading key %s", id)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemBlockType {
		return nil, taxonomy.New(taxonomy.Crypto, "key %s is not a valid PEM-encoded secp256k1 key", id)
	}
	if len(block.Bytes) != 32 {
		return nil, taxonomy.New(taxonomy.Crypto, "key %s has an invalid scalar length", id)
	}
	priv := secp256k1.PrivKeyFromBytes(block.Bytes)
	return &secretKey{priv: priv}, nil
}

// Sign returns a hex-encoded deterministic ECDSA (RFC6979) signature of
// payload using the named key.
func (k *OndiskKeyStore) Sign(ctx context.Context, id string, payload []byte) (string, error) {
	key, err := k.load(id)
	if err != nil {
		return "", err
	}
	sig := ecdsa.Sign(key.priv, hash256(payload))
	return hexEncode(sig.Serialize()), nil
}

// GetPublicKey returns the SEC1-compressed public key bytes for id.
func (k *OndiskKeyStore) GetPublicKey(ctx context.Context, id string) ([]byte, error) {
	key, err := k.load(id)
	if err != nil {
		return nil, err
	}
	return key.pubKey().SerializeCompressed(), nil
}

func (k *OndiskKeyStore) getPrivateKey(ctx context.Context, id string) (*secretKey, error) {
	return k.load(id)
}

// CreateKeypair generates a fresh random secp256k1 keypair and writes
// it to "<id>.pem", overwriting any existing keypair with that id.
func (k *OndiskKeyStore) CreateKeypair(ctx context.Context, id string) error {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return taxonomy.Wrap(taxonomy.Crypto, err, "generating keypair %s", id)
	}
	block := &pem.Block{Type: pemBlockType, Bytes: priv.Serialize()}
	if err := k.fs.MkdirAll(k.keyDir, 0o700); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "creating key store dir")
	}
	if err := afero.WriteFile(k.fs, k.keyPath(id), pem.EncodeToMemory(block), 0o600); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "writing keypair %s", id)
	}
	return nil
}

// DeleteKeypair removes the named keypair. It is not an error for the
// keypair to already be absent.
func (k *OndiskKeyStore) DeleteKeypair(ctx context.Context, id string) error {
	err := k.fs.Remove(k.keyPath(id))
	if err != nil && !os.IsNotExist(err) {
		return taxonomy.Wrap(taxonomy.IO, err, "deleting keypair %s", id)
	}
	return nil
}
