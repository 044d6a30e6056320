package solanapay

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GenerateReference returns a fresh keypair's public key for use as a payment
// reference. The private key is discarded; the reference never signs anything,
// it only tags the payment transaction so the chain can index it.
func GenerateReference() (solana.PublicKey, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to generate reference keypair: %w", err)
	}
	return priv.PublicKey(), nil
}
