package hashicorpvault

import (
	"errors"
	"fmt"

	"github.com/Ethernal-Tech/algorand-infrastructure/secrets"
	vault "github.com/hashicorp/vault/api"
	"github.com/hashicorp/go-hclog"
)

// VaultSecretsManager is a SecretsManager that
// stores secrets on a Hashicorp Vault instance
type VaultSecretsManager struct {
	// Logger object
	logger hclog.Logger

	// Token used for Vault instance authentication
	token string

	// The Server URL of the Vault instance
	serverURL string

	// The name of the current node, used for secret namespacing
	name string

	// The base path to store the secrets in KV-2 Vault storage
	basePath string

	// The namespace under which the secrets are stored
	namespace string

	// The Vault client
	client *vault.Client
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	if config.Token == "" {
		return nil, errors.New("no token specified for Vault secrets manager")
	}

	if config.ServerURL == "" {
		return nil, errors.New("no server URL specified for Vault secrets manager")
	}

	if config.Name == "" {
		return nil, errors.New("no node name specified for Vault secrets manager")
	}

	vaultManager := &VaultSecretsManager{
		logger:    params.Logger.Named("vault"),
		token:     config.Token,
		serverURL: config.ServerURL,
		name:      config.Name,
		namespace: config.Namespace,
		basePath:  fmt.Sprintf("secret/data/%s", config.Name),
	}

	if err := vaultManager.Setup(); err != nil {
		return nil, err
	}

	return vaultManager, nil
}

// Setup sets up the Vault client
func (v *VaultSecretsManager) Setup() error {
	config := vault.DefaultConfig()

	config.Address = v.serverURL

	client, err := vault.NewClient(config)
	if err != nil {
		return fmt.Errorf("unable to initialize Vault client: %w", err)
	}

	client.SetNamespace(v.namespace)
	client.SetToken(v.token)

	v.client = client

	return nil
}

// constructSecretPath returns the path for the secret in KV-2 Vault storage
func (v *VaultSecretsManager) constructSecretPath(name string) string {
	return fmt.Sprintf("%s/%s", v.basePath, name)
}

// GetSecret fetches a secret from the Vault instance
func (v *VaultSecretsManager) GetSecret(name string) ([]byte, error) {
	secret, err := v.client.Logical().Read(v.constructSecretPath(name))
	if err != nil {
		return nil, fmt.Errorf("unable to read secret from Vault, %w", err)
	}

	if secret == nil {
		return nil, secrets.ErrSecretNotFound
	}

	// KV-2 stores the actual values under the data sub-map
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response from Vault for secret %s", name)
	}

	value, ok := data[name].(string)
	if !ok {
		return nil, secrets.ErrSecretNotFound
	}

	return []byte(value), nil
}

// SetSecret saves a secret to the Vault instance
func (v *VaultSecretsManager) SetSecret(name string, value []byte) error {
	_, err := v.client.Logical().Write(v.constructSecretPath(name), map[string]interface{}{
		"data": map[string]interface{}{
			name: string(value),
		},
	})
	if err != nil {
		return fmt.Errorf("unable to store secret to Vault, %w", err)
	}

	return nil
}

// HasSecret checks if the secret is present on the Vault instance
func (v *VaultSecretsManager) HasSecret(name string) bool {
	_, err := v.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the secret from the Vault instance
func (v *VaultSecretsManager) RemoveSecret(name string) error {
	if !v.HasSecret(name) {
		return secrets.ErrSecretNotFound
	}

	_, err := v.client.Logical().Delete(v.constructSecretPath(name))
	if err != nil {
		return fmt.Errorf("unable to delete secret from Vault, %w", err)
	}

	return nil
}
