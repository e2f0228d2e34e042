package config

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSecrets map[string]string

func (s staticSecrets) GetSecret(key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", errors.New("missing " + key)
}

type fakeVault struct {
	secret *api.Secret
	err    error
}

func (f *fakeVault) Read(string) (*api.Secret, error) { return f.secret, f.err }

type fakeAWS struct {
	value string
	err   error
}

func (f *fakeAWS) GetSecretValue(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestEnvSecretManager(t *testing.T) {
	t.Setenv("CONDUIT_PLATFORM_WORKSPACE_SECRET", "shh")
	m := &EnvSecretManager{}

	v, err := m.GetSecret(SecretWorkspaceSecret)
	require.NoError(t, err)
	assert.Equal(t, "shh", v)

	_, err = m.GetSecret("missing_key")
	assert.Error(t, err)
}

func TestVaultSecretManager(t *testing.T) {
	t.Run("kv v2", func(t *testing.T) {
		m := &VaultSecretManager{path: "secret/data/conduit", logical: &fakeVault{secret: &api.Secret{
			Data: map[string]interface{}{"data": map[string]interface{}{"workspace_key": "ws"}},
		}}}
		v, err := m.GetSecret(SecretWorkspaceKey)
		require.NoError(t, err)
		assert.Equal(t, "ws", v)
	})

	t.Run("kv v1", func(t *testing.T) {
		m := &VaultSecretManager{path: "secret/conduit", logical: &fakeVault{secret: &api.Secret{
			Data: map[string]interface{}{"workspace_key": "ws1"},
		}}}
		v, err := m.GetSecret(SecretWorkspaceKey)
		require.NoError(t, err)
		assert.Equal(t, "ws1", v)
	})

	t.Run("missing secret", func(t *testing.T) {
		m := &VaultSecretManager{path: "secret/none", logical: &fakeVault{}}
		_, err := m.GetSecret(SecretWorkspaceKey)
		assert.Error(t, err)
	})
}

func TestAWSSecretManager(t *testing.T) {
	m := &AWSSecretManager{secretID: "conduit/platform", client: &fakeAWS{value: `{"workspace_secret":"aws-secret"}`}}
	v, err := m.GetSecret(SecretWorkspaceSecret)
	require.NoError(t, err)
	assert.Equal(t, "aws-secret", v)

	_, err = m.GetSecret(SecretWorkspaceKey)
	assert.Error(t, err)

	broken := &AWSSecretManager{secretID: "x", client: &fakeAWS{value: "not json"}}
	_, err = broken.GetSecret(SecretWorkspaceKey)
	assert.Error(t, err)
}

func TestNewSecretManager(t *testing.T) {
	c := newTestConfig()
	m, err := NewSecretManager(&c)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, m)

	c.Secrets.Provider = "vault"
	c.Secrets.Vault.Address = "http://127.0.0.1:8200"
	m, err = NewSecretManager(&c)
	require.NoError(t, err)
	assert.IsType(t, &VaultSecretManager{}, m)

	c.Secrets.Provider = "gcp"
	_, err = NewSecretManager(&c)
	assert.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	c := newTestConfig()
	c.Platform.WorkspaceKey = "configured"

	err := LoadSecrets(&c, staticSecrets{"workspace_key": "ignored", "workspace_secret": "loaded"})
	require.NoError(t, err)
	assert.Equal(t, "configured", c.Platform.WorkspaceKey)
	assert.Equal(t, "loaded", c.Platform.WorkspaceSecret)

	empty := newTestConfig()
	err = LoadSecrets(&empty, staticSecrets{})
	assert.Error(t, err)
}
