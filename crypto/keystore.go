package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// keystoreFile is the on-disk encrypted key-pair file. Its internal format
// is outside spec scope (the spec treats the key file as an opaque
// external collaborator) but a node still needs to create and reload one.
type keystoreFile struct {
	Profile    string `json:"profile"`
	PubKey     string `json:"pub_key"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

const pbkdf2Iterations = 100_000

// SaveKey encrypts priv with password and writes it to path.
func SaveKey(path string, profile Profile, password string, priv PrivateKey) error {
	var raw []byte
	var err error
	switch profile.Name() {
	case "classical":
		raw, err = PrivateKeyBytesClassical(priv)
	case "lattice":
		raw, err = PrivateKeyBytesLattice(priv)
	default:
		return fmt.Errorf("crypto: unknown profile %q", profile.Name())
	}
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	key := deriveKey(password, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	cipherText := gcm.Seal(nil, nonce, raw, nil)

	ks := keystoreFile{
		Profile:    profile.Name(),
		PubKey:     hex.EncodeToString(priv.Public().Bytes()),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(cipherText),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadKey decrypts the keystore at path using password and returns a
// PrivateKey for the profile the file was saved under.
func LoadKey(path, password string) (PrivateKey, Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, nil, err
	}
	profile, err := ForKind(Kind(ks.Profile))
	if err != nil {
		return nil, nil, err
	}
	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return nil, nil, err
	}
	cipherText, err := hex.DecodeString(ks.CipherText)
	if err != nil {
		return nil, nil, err
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	raw, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, nil, errors.New("crypto: wrong password or corrupt keystore")
	}

	var priv PrivateKey
	switch profile.Name() {
	case "classical":
		priv, err = ClassicalFromBytes(raw)
	case "lattice":
		priv, err = LatticeFromBytes(raw)
	}
	if err != nil {
		return nil, nil, err
	}
	return priv, profile, nil
}

// deriveKey stretches password+salt into an AES-256 key via PBKDF2-SHA256.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
}
