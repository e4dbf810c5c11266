package crypto

import (
	"encoding/base32"

	"github.com/btcsuite/btcd/btcec"
)

var base32Codec = base32.StdEncoding.WithPadding(base32.NoPadding)

// PubKeyToID returns a peer id from the public key.
// The id is a readable representation of the compressed public key.
func PubKeyToID(pubKey *btcec.PublicKey) string {
	return base32Codec.EncodeToString(pubKey.SerializeCompressed())
}

// PrivKeyToID returns a peer id from the private key
func PrivKeyToID(privKey *btcec.PrivateKey) string {
	return PubKeyToID(privKey.PubKey())
}

// IDToPubKey returns a public key from id; if error happens returns nil
func IDToPubKey(id string) *btcec.PublicKey {
	pubKeyB := IDToBytes(id)
	if pubKeyB == nil {
		return nil
	}

	pubKey, err := btcec.ParsePubKey(pubKeyB, btcec.S256())
	if err != nil {
		return nil
	}
	return pubKey
}

// IDToBytes returns the compressed public key bytes; if error happens returns nil
func IDToBytes(id string) []byte {
	pubKeyB, _ := base32Codec.DecodeString(id)
	return pubKeyB
}

// BytesToID returns a peer id from the compressed public key bytes
func BytesToID(compressedKey []byte) string {
	return base32Codec.EncodeToString(compressedKey)
}
