package gcpssm

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/Ethernal-Tech/algorand-infrastructure/secrets"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/option"
)

type GCPSecretsManager struct {
	// project in which to store the secrets
	projectID string
	// credentials file path, empty to use ambient application credentials
	credentialsFilePath string
	// the name of the current node, used for secret namespacing
	name string
	// gcp secrets manager client
	client *secretmanager.Client
	// the context used by the client
	context context.Context //nolint:containedctx

	logger hclog.Logger
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	if config.Name == "" {
		return nil, errors.New("no node name specified for GCP secrets manager")
	}

	projectID, ok := config.Extra["project-id"].(string)
	if !ok || projectID == "" {
		return nil, errors.New("no project-id specified for GCP secrets manager")
	}

	credentialsFilePath, _ := config.Extra["gcp-ssm-cred"].(string)

	gcpSsmManager := &GCPSecretsManager{
		projectID:           projectID,
		credentialsFilePath: credentialsFilePath,
		name:                config.Name,
		logger:              params.Logger.Named("gcp-ssm"),
	}

	if err := gcpSsmManager.Setup(); err != nil {
		return nil, err
	}

	return gcpSsmManager, nil
}

// Setup sets up the GCP secrets manager client
func (gm *GCPSecretsManager) Setup() error {
	var (
		clientOptions []option.ClientOption
		err           error
	)

	if gm.credentialsFilePath != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(gm.credentialsFilePath))
	}

	gm.context = context.Background()

	gm.client, err = secretmanager.NewClient(gm.context, clientOptions...)
	if err != nil {
		return fmt.Errorf("unable to initialize GCP secrets manager client: %w", err)
	}

	return nil
}

// GetSecret fetches the latest version of the secret
func (gm *GCPSecretsManager) GetSecret(name string) ([]byte, error) {
	result, err := gm.client.AccessSecretVersion(gm.context, &secretmanagerpb.AccessSecretVersionRequest{
		Name: gm.constructSecretVersionName(name),
	})
	if err != nil {
		return nil, secrets.ErrSecretNotFound
	}

	return result.Payload.Data, nil
}

// SetSecret creates the secret and adds the value as its first version
func (gm *GCPSecretsManager) SetSecret(name string, value []byte) error {
	secret, err := gm.client.CreateSecret(gm.context, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + gm.projectID,
		SecretId: gm.constructSecretID(name),
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("unable to create secret (%s), %w", name, err)
	}

	if _, err := gm.client.AddSecretVersion(gm.context, &secretmanagerpb.AddSecretVersionRequest{
		Parent: secret.Name,
		Payload: &secretmanagerpb.SecretPayload{
			Data: value,
		},
	}); err != nil {
		return fmt.Errorf("unable to store secret (%s), %w", name, err)
	}

	return nil
}

// HasSecret checks if the secret is present
func (gm *GCPSecretsManager) HasSecret(name string) bool {
	_, err := gm.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the secret and all of its versions
func (gm *GCPSecretsManager) RemoveSecret(name string) error {
	if !gm.HasSecret(name) {
		return secrets.ErrSecretNotFound
	}

	if err := gm.client.DeleteSecret(gm.context, &secretmanagerpb.DeleteSecretRequest{
		Name: gm.constructSecretName(name),
	}); err != nil {
		return fmt.Errorf("unable to delete secret (%s), %w", name, err)
	}

	return nil
}

func (gm *GCPSecretsManager) constructSecretID(name string) string {
	return fmt.Sprintf("%s_%s", gm.name, name)
}

func (gm *GCPSecretsManager) constructSecretName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", gm.projectID, gm.constructSecretID(name))
}

func (gm *GCPSecretsManager) constructSecretVersionName(name string) string {
	return gm.constructSecretName(name) + "/versions/latest"
}
