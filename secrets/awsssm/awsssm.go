package awsssm

import (
	"errors"
	"fmt"

	"github.com/Ethernal-Tech/algorand-infrastructure/secrets"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/hashicorp/go-hclog"
)

// AwsSsmManager is a SecretsManager that
// stores secrets on AWS SSM Parameter Store
type AwsSsmManager struct {
	// Logger object
	logger hclog.Logger

	// The AWS region
	region string

	// Custom AWS endpoint, e.g. localstack
	endpoint string

	// The base path under which the secrets are stored
	basePath string

	// The AWS SSM client
	client *ssm.SSM
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	if config.Name == "" {
		return nil, errors.New("no node name specified for AWS SSM secrets manager")
	}

	region, ok := config.Extra["region"].(string)
	if !ok || region == "" {
		return nil, errors.New("no region specified for AWS SSM secrets manager")
	}

	parameterPath, _ := config.Extra["ssm-parameter-path"].(string)

	awsSsmManager := &AwsSsmManager{
		logger:   params.Logger.Named("aws-ssm"),
		region:   region,
		endpoint: config.ServerURL,
		basePath: fmt.Sprintf("%s/%s", parameterPath, config.Name),
	}

	if err := awsSsmManager.Setup(); err != nil {
		return nil, err
	}

	return awsSsmManager, nil
}

// Setup sets up the AWS SSM client
func (a *AwsSsmManager) Setup() error {
	cfg := aws.NewConfig().WithRegion(a.region)
	if a.endpoint != "" {
		cfg = cfg.WithEndpoint(a.endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return fmt.Errorf("unable to initialize AWS SSM client: %w", err)
	}

	a.client = ssm.New(sess)

	return nil
}

// constructSecretPath returns the path for the secret in the parameter store
func (a *AwsSsmManager) constructSecretPath(name string) string {
	return fmt.Sprintf("%s/%s", a.basePath, name)
}

// GetSecret fetches a secret from AWS SSM
func (a *AwsSsmManager) GetSecret(name string) ([]byte, error) {
	param, err := a.client.GetParameter(&ssm.GetParameterInput{
		Name:           aws.String(a.constructSecretPath(name)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil || param == nil {
		return nil, secrets.ErrSecretNotFound
	}

	return []byte(*param.Parameter.Value), nil
}

// SetSecret saves a secret to AWS SSM
func (a *AwsSsmManager) SetSecret(name string, value []byte) error {
	if _, err := a.client.PutParameter(&ssm.PutParameterInput{
		Name:  aws.String(a.constructSecretPath(name)),
		Value: aws.String(string(value)),
		Type:  aws.String(ssm.ParameterTypeSecureString),
	}); err != nil {
		return fmt.Errorf("unable to store secret (%s), %w", name, err)
	}

	return nil
}

// HasSecret checks if the secret is present on AWS SSM
func (a *AwsSsmManager) HasSecret(name string) bool {
	_, err := a.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the secret from AWS SSM
func (a *AwsSsmManager) RemoveSecret(name string) error {
	if _, err := a.GetSecret(name); err != nil {
		return err
	}

	if _, err := a.client.DeleteParameter(&ssm.DeleteParameterInput{
		Name: aws.String(a.constructSecretPath(name)),
	}); err != nil {
		return fmt.Errorf("unable to delete secret (%s), %w", name, err)
	}

	return nil
}
