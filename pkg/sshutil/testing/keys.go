package testing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

// WriteKeyPair writes an unencrypted ed25519 key pair to dir/name and
// dir/name.pub and returns the private key path and the public key.
func WriteKeyPair(t testing.TB, dir, name string) (string, ssh.PublicKey) {
	t.Helper()
	return writeKeyPair(t, dir, name, "")
}

// WriteEncryptedKeyPair is WriteKeyPair with a passphrase-protected private key.
func WriteEncryptedKeyPair(t testing.TB, dir, name, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	return writeKeyPair(t, dir, name, passphrase)
}

func writeKeyPair(t testing.TB, dir, name, passphrase string) (string, ssh.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(path+".pub", ssh.MarshalAuthorizedKey(sshPub), 0644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return path, sshPub
}
