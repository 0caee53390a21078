package secrets

import (
	"errors"

	"github.com/hashicorp/go-hclog"
)

// SecretsManagerType defines the secrets manager type
type SecretsManagerType string

const (
	// Local pertains to the local disk secrets manager
	Local SecretsManagerType = "local"

	// HashicorpVault pertains to the Hashicorp Vault secrets manager
	HashicorpVault SecretsManagerType = "hashicorp-vault"

	// AWSSSM pertains to AWS SSM using secrets manager
	AWSSSM SecretsManagerType = "aws-ssm"

	// GCPSSM pertains to the Google Cloud Secret Manager
	GCPSSM SecretsManagerType = "gcp-ssm"
)

// Secret names the subscription infrastructure stores
const (
	// AlgodToken is the access token of the block source node
	AlgodToken = "algod-token"

	// IndexerToken is the access token of the history source
	IndexerToken = "indexer-token"
)

const (
	// TokensFolderLocal is the local folder the token secrets live in
	TokensFolderLocal = "tokens"

	// Path is the path extra parameter of the local secrets manager
	Path = "path"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretsManager defines the base public interface that all
// secret manager implementations should have
type SecretsManager interface {
	// Setup performs secret manager specific setup
	Setup() error

	// GetSecret gets the secret by name
	GetSecret(name string) ([]byte, error)

	// SetSecret sets the secret to a provided value
	SetSecret(name string, value []byte) error

	// HasSecret checks if the secret is present
	HasSecret(name string) bool

	// RemoveSecret removes the secret from storage
	RemoveSecret(name string) error
}

// SecretsManagerParams defines the configuration params for the
// secrets manager
type SecretsManagerParams struct {
	// Logger object
	Logger hclog.Logger

	// Extra contains additional data needed for the secrets manager to function
	Extra map[string]interface{}
}

// SecretsManagerFactory is the factory method for secrets managers
type SecretsManagerFactory func(
	config *SecretsManagerConfig,
	params *SecretsManagerParams,
) (SecretsManager, error)
