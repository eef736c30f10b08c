// Package identity handles the agent's operator identity: the
// "<inbound-topic>@<account-id>" string peers use to address each other,
// and the operator keypair persisted in the config directory.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hedera "github.com/hiero-ledger/hiero-sdk-go/v2/sdk"
)

var ErrInvalidOperatorID = errors.New("invalid operator id")

// OperatorID is a peer's self-asserted identity: its inbound topic plus its
// account id.
type OperatorID struct {
	InboundTopic string
	AccountID    string
}

// Parse splits an operator id of the form "<topic>@<account>".
func Parse(s string) (OperatorID, error) {
	topic, account, ok := strings.Cut(s, "@")
	if !ok || topic == "" || account == "" {
		return OperatorID{}, fmt.Errorf("%w: %q", ErrInvalidOperatorID, s)
	}
	return OperatorID{InboundTopic: topic, AccountID: account}, nil
}

// String renders the wire form of the operator id.
func (id OperatorID) String() string {
	return id.InboundTopic + "@" + id.AccountID
}

// Credentials holds the agent's persisted account configuration.
type Credentials struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	Network    string `json:"network"`
}

// ConfigDir returns the directory holding agent credentials, honoring the
// AGENT_CONFIG override.
func ConfigDir() string {
	if dir := os.Getenv("AGENT_CONFIG"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hedera-intel-agent")
}

// Generate creates a fresh ED25519 operator keypair.
func Generate() (Credentials, error) {
	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		PublicKey:  key.PublicKey().String(),
		PrivateKey: key.String(),
	}, nil
}

// Load reads credentials from the config directory.
func Load(dir string) (Credentials, error) {
	data, err := os.ReadFile(filepath.Join(dir, "agent.json"))
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Save writes credentials to the config directory, key file readable by the
// owner only.
func Save(dir string, creds Credentials) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "agent.json"), data, 0600)
}
