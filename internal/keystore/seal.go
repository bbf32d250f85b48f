package keystore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// SealedSecret is the portable envelope a client produces by sealing a
// plaintext secret against a server's published public key.
type SealedSecret struct {
	ServerDomain    string `json:"server_domain"`
	ServerPubkeyID  string `json:"server_pubkey_id"`
	EphemeralPubkey string `json:"ephemeral_pubkey"`
	Salt            string `json:"salt"`
	Nonce           string `json:"nonce"`
	Ciphertext      string `json:"ciphertext"`
}

const saltSize = 32

// Seal encrypts plaintext so that only the holder of the private key
// behind serverPubkey (SEC1-compressed) can recover it: an ephemeral
// secp256k1 keypair is generated, ECDH'd against serverPubkey, the
// shared x-coordinate is stretched through HKDF-SHA256 into a 32-byte
// key, and plaintext is sealed under ChaCha20-Poly1305 with a random
// nonce.
func Seal(domain, pubkeyID string, serverPubkey []byte, plaintext []byte) (*SealedSecret, error) {
	server, err := secp256k1.ParsePubKey(serverPubkey)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "parsing server public key")
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "generating ephemeral keypair")
	}

	sharedX := ecdh(ephemeral, server)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "generating salt")
	}

	key, err := deriveKey(sharedX, salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "constructing AEAD")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "generating nonce")
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &SealedSecret{
		ServerDomain:    domain,
		ServerPubkeyID:  pubkeyID,
		EphemeralPubkey: base64.StdEncoding.EncodeToString(ephemeral.PubKey().SerializeCompressed()),
		Salt:            base64.StdEncoding.EncodeToString(salt),
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Unseal decrypts a SealedSecret using the private key named by
// sealed.ServerPubkeyID in ks, reversing the ECDH+HKDF+AEAD pipeline in
// Seal. It returns a Crypto-kind error (not panicking) if the envelope
// has been tampered with, since ChaCha20-Poly1305 fails closed on any
// bit flip.
func Unseal(ctx context.Context, ks KeyStore, sealed *SealedSecret) ([]byte, error) {
	priv, err := ks.getPrivateKey(ctx, sealed.ServerPubkeyID)
	if err != nil {
		return nil, err
	}

	ephemeralBytes, err := base64.StdEncoding.DecodeString(sealed.EphemeralPubkey)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "decoding ephemeral public key")
	}
	ephemeralPub, err := secp256k1.ParsePubKey(ephemeralBytes)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "parsing ephemeral public key")
	}

	salt, err := base64.StdEncoding.DecodeString(sealed.Salt)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "decoding salt")
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "decoding nonce")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "decoding ciphertext")
	}

	sharedX := ecdh(priv.priv, ephemeralPub)
	key, err := deriveKey(sharedX, salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "constructing AEAD")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, taxonomy.New(taxonomy.Crypto, "sealed secret failed authentication: tampered or wrong key")
	}
	return plaintext, nil
}

func deriveKey(sharedX, salt []byte) ([]byte, error) {
	okm := make([]byte, chacha20poly1305.KeySize)
	if _, err := hkdf.New(sha256.New, sharedX, salt, nil).Read(okm); err != nil {
		return nil, taxonomy.Wrap(taxonomy.Crypto, err, "deriving key via HKDF")
	}
	return okm, nil
}

// ecdh computes the x-coordinate of priv * pub on secp256k1, the
// standard ECDH shared-secret construction.
func ecdh(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) []byte {
	var pubJacobian secp256k1.JacobianPoint
	pub.AsJacobian(&pubJacobian)

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&priv.Key, &pubJacobian, &result)
	result.ToAffine()

	x := result.X.Bytes()
	return x[:]
}
