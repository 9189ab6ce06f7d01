package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolchain/crypto"
)

// TxBody is the payload a transaction carries: a recipient identity and an
// opaque data string (a chat message, a consensus-settings blob for
// genesis, or any application payload — this engine does not interpret
// Data beyond hashing and storing it).
type TxBody struct {
	Recipient [32]byte `json:"recipient"`
	Data      []byte   `json:"data"`
}

// NewTxBody builds a TxBody.
func NewTxBody(recipient [32]byte, data []byte) TxBody {
	return TxBody{Recipient: recipient, Data: data}
}

// Transaction is the atomic, signed unit of work on the chain.
// ProposerPub is the hash of the signer's public key, not the key itself —
// the signer key is resolved by proposer_pub through the pubkey store.
type Transaction struct {
	Body        TxBody   `json:"body"`
	ProposerPub [32]byte `json:"proposer_pub"`
	Signature   []byte   `json:"signature"`
}

// signingPayload mirrors the fields covered by the signature and hash.
// Signature is deliberately excluded so verification is well defined.
type signingPayload struct {
	Body        TxBody   `json:"body"`
	ProposerPub [32]byte `json:"proposer_pub"`
}

func (tx *Transaction) canonicalBytes() []byte {
	data, err := json.Marshal(signingPayload{Body: tx.Body, ProposerPub: tx.ProposerPub})
	if err != nil {
		// Body and ProposerPub are plain data; marshalling cannot fail.
		panic(fmt.Sprintf("core: marshal transaction body: %v", err))
	}
	return data
}

// Hash returns the content-address digest of the transaction. It is stable
// across repeated calls and across Encode/Decode round trips.
func (tx *Transaction) Hash() [32]byte {
	return crypto.Hash(tx.canonicalBytes())
}

// Len approximates the transaction's on-wire byte size, used by the
// proposal limiter to track accumulated mempool bytes.
func (tx *Transaction) Len() int {
	return len(tx.Body.Recipient) + len(tx.Body.Data) + len(tx.ProposerPub) + len(tx.Signature)
}

// NewTransaction builds and signs a transaction with priv.
func NewTransaction(body TxBody, priv crypto.PrivateKey) (*Transaction, error) {
	tx := &Transaction{Body: body, ProposerPub: priv.Public().Hash()}
	sig, err := priv.Sign(tx.canonicalBytes())
	if err != nil {
		return nil, fmt.Errorf("core: sign transaction: %w", err)
	}
	tx.Signature = sig
	return tx, nil
}

// Verify checks that the signature is valid over the canonical encoding
// under pub, and that hash(pub) equals the transaction's ProposerPub.
// It is the caller's responsibility to have resolved pub from ProposerPub
// (via the pubkey store or a PubKey request/reply round trip) first.
func (tx *Transaction) Verify(profile crypto.Profile, pub crypto.PublicKey) error {
	if pub.Hash() != tx.ProposerPub {
		return errors.New("core: proposer pubkey does not match tx.proposer_pub")
	}
	if !profile.Verify(pub, tx.canonicalBytes(), tx.Signature) {
		return errors.New("core: transaction signature invalid")
	}
	return nil
}

// Encode serialises tx to its canonical wire/storage form.
func (tx *Transaction) Encode() ([]byte, error) {
	return json.Marshal(tx)
}

// DecodeTransaction parses the bytes produced by Encode.
func DecodeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("core: decode transaction: %w", err)
	}
	return &tx, nil
}

// ZeroRecipient is the recipient identity used for chat messages wrapped
// as transactions (Event::Chat in the source).
var ZeroRecipient [32]byte
