package p2p

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"

	"github.com/btcsuite/btcd/btcec"
)

// codec seals and opens the payloads travelling over one connection
type codec interface {
	encrypt(plainText []byte) ([]byte, error)
	decrypt(cipherText []byte) ([]byte, error)
}

// aesgcmCodec is an AES-GCM codec keyed by the session secret the
// handshake negotiated; both sides derive the same key and nonce
type aesgcmCodec struct {
	aead  cipher.AEAD
	nonce []byte
}

func (c *aesgcmCodec) encrypt(plainText []byte) ([]byte, error) {
	return c.aead.Seal(nil, c.nonce, plainText, nil), nil
}

func (c *aesgcmCodec) decrypt(cipherText []byte) ([]byte, error) {
	return c.aead.Open(nil, c.nonce, cipherText, nil)
}

// newAESGCMCodec splits the sha512 of the ECDH shared secret into the
// cipher key and the nonce
func newAESGCMCodec(remotePubKey *btcec.PublicKey, randPrivKey *btcec.PrivateKey) (*aesgcmCodec, error) {
	sharedKey := sha512.Sum512(btcec.GenerateSharedSecret(randPrivKey, remotePubKey))

	block, err := aes.NewCipher(sharedKey[:32])
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &aesgcmCodec{
		aead:  aesgcm,
		nonce: sharedKey[32 : 32+nonceSize],
	}, nil
}
