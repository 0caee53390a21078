package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ethernal-Tech/algorand-infrastructure/common"
	"github.com/Ethernal-Tech/algorand-infrastructure/secrets"
)

// LocalSecretsManager is a SecretsManager that
// stores secrets locally on disk
type LocalSecretsManager struct {
	// Path to the base working directory
	path string

	// Mux for disk access
	lock sync.RWMutex
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	_ *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	path, ok := params.Extra[secrets.Path].(string)
	if !ok || path == "" {
		return nil, errors.New("no path specified for local secrets manager")
	}

	localManager := &LocalSecretsManager{
		path: path,
	}

	if err := localManager.Setup(); err != nil {
		return nil, err
	}

	return localManager, nil
}

// Setup creates the local directory layout
func (l *LocalSecretsManager) Setup() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return common.SetupDataDir(l.path, []string{secrets.TokensFolderLocal}, 0750)
}

// GetSecret gets the local SecretsManager's secret from disk
func (l *LocalSecretsManager) GetSecret(name string) ([]byte, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	secretPath := l.secretPath(name)

	if !common.FileExists(secretPath) {
		return nil, secrets.ErrSecretNotFound
	}

	secret, err := os.ReadFile(secretPath)
	if err != nil {
		return nil, fmt.Errorf(
			"unable to read secret from disk (%s), %w",
			secretPath,
			err,
		)
	}

	return secret, nil
}

// SetSecret saves the local SecretsManager's secret to disk
func (l *LocalSecretsManager) SetSecret(name string, value []byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	secretPath := l.secretPath(name)

	if common.FileExists(secretPath) {
		return fmt.Errorf("%s already initialized", secretPath)
	}

	if err := common.SaveFileSafe(secretPath, value, 0440); err != nil {
		return fmt.Errorf(
			"unable to write secret to disk (%s), %w",
			secretPath,
			err,
		)
	}

	return nil
}

// HasSecret checks if the secret is present on disk
func (l *LocalSecretsManager) HasSecret(name string) bool {
	_, err := l.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the local SecretsManager's secret from disk
func (l *LocalSecretsManager) RemoveSecret(name string) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	secretPath := l.secretPath(name)

	if !common.FileExists(secretPath) {
		return secrets.ErrSecretNotFound
	}

	if removeErr := os.Remove(secretPath); removeErr != nil {
		return fmt.Errorf("unable to remove secret, %w", removeErr)
	}

	return nil
}

func (l *LocalSecretsManager) secretPath(name string) string {
	return filepath.Join(l.path, secrets.TokensFolderLocal, name+".key")
}
