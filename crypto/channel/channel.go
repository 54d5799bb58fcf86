// Package channel implements the per-hop symmetric channel encryption
// used by the onion codec: a Diffie-Hellman shared secret over X25519,
// run through a keyed hash, feeding one of three symmetric schemes.
package channel

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
)

const keyLen = 32

// ErrDecrypt is returned when decryption fails: authentication failure,
// key mismatch, scheme mismatch, or a malformed (too-short) ciphertext.
var ErrDecrypt = errors.New("channel: decrypt failed")

// ChannelEncryption owns a local X25519 keypair and performs
// encrypt/decrypt against arbitrary peer public keys. ServerSide is
// retained verbatim for a future key-direction decision; the current
// scheme set does not branch on it (open question, §9).
type ChannelEncryption struct {
	secretKey  keys.X25519Seckey
	publicKey  keys.X25519Pubkey
	ServerSide bool
}

// New constructs a ChannelEncryption around a local X25519 keypair.
func New(sk keys.X25519Seckey, pk keys.X25519Pubkey, serverSide bool) *ChannelEncryption {
	return &ChannelEncryption{secretKey: sk, publicKey: pk, ServerSide: serverSide}
}

// PublicKey returns the local X25519 public key.
func (c *ChannelEncryption) PublicKey() keys.X25519Pubkey { return c.publicKey }

// deriveKey computes K = BLAKE2b(DH || pkLow || pkHigh) with a
// keyLen-byte digest size, where DH = x25519(local_sk, peer_pk) and pkLow/pkHigh are
// the local and peer public keys sorted into a fixed byte order. Sorting
// rather than using a fixed local-then-peer order makes the derivation
// agree regardless of which side computes it: the two ends otherwise
// disagree on which key is "local".
func (c *ChannelEncryption) deriveKey(peerPub keys.X25519Pubkey) ([]byte, error) {
	dh, err := keys.DH(c.secretKey, peerPub)
	if err != nil {
		return nil, ErrDecrypt
	}
	h, err := blake2b.New(keyLen, nil)
	if err != nil {
		return nil, err
	}
	a, b := c.publicKey.Bytes(), peerPub.Bytes()
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	h.Write(dh)
	h.Write(a)
	h.Write(b)
	return h.Sum(nil), nil
}

// Encrypt encrypts plaintext for peerPub under the named scheme, returning
// raw binary: [nonce/iv][ciphertext(+tag)].
func (c *ChannelEncryption) Encrypt(scheme Scheme, plaintext []byte, peerPub keys.X25519Pubkey) ([]byte, error) {
	key, err := c.deriveKey(peerPub)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case XChaCha20:
		return encryptXChaCha20(key, plaintext)
	case AesGcm:
		return encryptAesGcm(key, plaintext)
	case AesCbc:
		return encryptAesCbc(key, plaintext)
	default:
		return nil, errors.New("channel: unknown scheme")
	}
}

// Decrypt inverts Encrypt. It fails ErrDecrypt on authentication failure,
// key mismatch, or malformed length.
func (c *ChannelEncryption) Decrypt(scheme Scheme, ciphertext []byte, peerPub keys.X25519Pubkey) ([]byte, error) {
	key, err := c.deriveKey(peerPub)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case XChaCha20:
		return decryptXChaCha20(key, ciphertext)
	case AesGcm:
		return decryptAesGcm(key, ciphertext)
	case AesCbc:
		return decryptAesCbc(key, ciphertext)
	default:
		return nil, errors.New("channel: unknown scheme")
	}
}

func encryptXChaCha20(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, out...), nil
}

func decryptXChaCha20(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, box := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	out, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}

func encryptAesGcm(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, out...), nil
}

func decryptAesGcm(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, box := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	out, err := gcm.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}

const aesCbcIVLen = 16

func encryptAesCbc(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aesCbcIVLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return append(iv, out...), nil
}

func decryptAesCbc(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aesCbcIVLen || (len(ciphertext)-aesCbcIVLen)%aes.BlockSize != 0 || len(ciphertext) == aesCbcIVLen {
		return nil, ErrDecrypt
	}
	iv, box := ciphertext[:aesCbcIVLen], ciphertext[aesCbcIVLen:]
	out := make([]byte, len(box))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, box)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecrypt
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, ErrDecrypt
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrDecrypt
		}
	}
	return data[:len(data)-padLen], nil
}
