package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	secretsmanagertypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type countingStore struct {
	secrets map[string]map[string]string
	err     error
	calls   map[string]int
}

func newCountingStore(secrets map[string]map[string]string) *countingStore {
	return &countingStore{secrets: secrets, calls: map[string]int{}}
}

func (s *countingStore) GetSecret(_ context.Context, path string) (map[string]string, error) {
	s.calls[path]++
	if s.err != nil {
		return nil, s.err
	}
	secret, ok := s.secrets[path]
	if !ok {
		return nil, notFound(path)
	}
	return copySecret(secret), nil
}

func TestParsePayload(t *testing.T) {
	got, err := parsePayload("p", []byte(`{"account_id":"ACC-1","account_auth":"s3cret","retries":3,"live":true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"account_id":   "ACC-1",
		"account_auth": "s3cret",
		"retries":      "3",
		"live":         "true",
	}, got)

	_, err = parsePayload("p", []byte("plain text"))
	assert.Error(t, err)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ecorepay"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ecorepay", "default.json"),
		[]byte(`{"account_id":"ACC-1","account_auth":"s3cret"}`), 0o600))

	store := NewLocalStore(dir, zap.NewNop())

	got, err := store.GetSecret(context.Background(), "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", got["account_id"])

	_, err = store.GetSecret(context.Background(), "ecorepay/mc")
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	_, err = store.GetSecret(context.Background(), "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrSecretNotFound), "paths stay below the base directory")
}

func TestCachedStore(t *testing.T) {
	inner := newCountingStore(map[string]map[string]string{
		"ecorepay/default": {"account_id": "ACC-1", "account_auth": "s3cret"},
	})
	store := NewCachedStore(inner, time.Minute)
	ctx := context.Background()

	first, err := store.GetSecret(ctx, "ecorepay/default")
	require.NoError(t, err)
	first["account_id"] = "mutated"

	second, err := store.GetSecret(ctx, "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", second["account_id"], "callers get copies")
	assert.Equal(t, 1, inner.calls["ecorepay/default"])

	_, err = store.GetSecret(ctx, "ecorepay/mc")
	assert.Error(t, err)
	_, _ = store.GetSecret(ctx, "ecorepay/mc")
	assert.Equal(t, 2, inner.calls["ecorepay/mc"], "misses are not cached")

	store.Invalidate()
	_, err = store.GetSecret(ctx, "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["ecorepay/default"])
}

func TestCachedStore_Disabled(t *testing.T) {
	inner := newCountingStore(map[string]map[string]string{"a": {"k": "v"}})
	store := NewCachedStore(inner, 0)

	for i := 0; i < 3; i++ {
		_, err := store.GetSecret(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls["a"])
	store.Invalidate()
}

func TestCredentialResolver(t *testing.T) {
	inner := newCountingStore(map[string]map[string]string{
		"ecorepay/default": {"account_id": "ACC-1", "account_auth": "s3cret"},
		"ecorepay/mc":      {"account_id": "ACC-MC", "account_auth": "mc-secret"},
		"ecorepay/ae":      {"account_id": "ACC-AE"},
	})
	resolver := NewCredentialResolver(inner, "ecorepay/")
	ctx := context.Background()

	tests := []struct {
		name     string
		cardType string
		wantID   string
		wantErr  bool
	}{
		{name: "brand_override", cardType: "MC", wantID: "ACC-MC"},
		{name: "unknown_brand_falls_back", cardType: "VI", wantID: "ACC-1"},
		{name: "no_brand", cardType: "", wantID: "ACC-1"},
		{name: "incomplete_secret", cardType: "AE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := resolver.Resolve(ctx, tt.cardType)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, creds.AccountID)
		})
	}

	t.Run("backend_failure_is_not_masked", func(t *testing.T) {
		failing := newCountingStore(nil)
		failing.err = errors.New("vault sealed")

		_, err := NewCredentialResolver(failing, "ecorepay").Resolve(ctx, "MC")

		assert.EqualError(t, err, "vault sealed")
		assert.Zero(t, failing.calls["ecorepay/default"])
	})
}

func TestVaultStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/secret/data/ecorepay/default":
			_, _ = w.Write([]byte(`{"data":{"data":{"account_id":"ACC-1","account_auth":"s3cret"},"metadata":{"version":3}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	defer srv.Close()

	cfg := DefaultVaultConfig(srv.URL)
	cfg.Token = "root-token"
	store, err := NewVaultStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	got, err := store.GetSecret(context.Background(), "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"account_id": "ACC-1", "account_auth": "s3cret"}, got)

	_, err = store.GetSecret(context.Background(), "ecorepay/mc")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestNewVaultStore_AuthValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *VaultConfig
	}{
		{name: "missing_token", cfg: &VaultConfig{Address: "http://127.0.0.1:1", AuthMethod: "token"}},
		{name: "missing_approle", cfg: &VaultConfig{Address: "http://127.0.0.1:1", AuthMethod: "approle"}},
		{name: "unsupported", cfg: &VaultConfig{Address: "http://127.0.0.1:1", AuthMethod: "kerberos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVaultStore(context.Background(), tt.cfg, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

type fakeSecretsManager struct {
	out *secretsmanager.GetSecretValueOutput
	err error
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return f.out, f.err
}

func TestAWSStore(t *testing.T) {
	ctx := context.Background()

	store := &AWSStore{
		api:    &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"account_id":"ACC-1","account_auth":"s3cret"}`)}},
		logger: zap.NewNop(),
	}
	got, err := store.GetSecret(ctx, "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got["account_auth"])

	store.api = &fakeSecretsManager{err: &secretsmanagertypes.ResourceNotFoundException{Message: aws.String("nope")}}
	_, err = store.GetSecret(ctx, "ecorepay/mc")
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	store.api = &fakeSecretsManager{err: errors.New("throttled")}
	_, err = store.GetSecret(ctx, "ecorepay/mc")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrSecretNotFound))
}

type fakeAccessor struct {
	data []byte
	err  error
	name string
}

func (f *fakeAccessor) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.name = req.GetName()
	if f.err != nil {
		return nil, f.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: f.data},
	}, nil
}

func TestGCPStore(t *testing.T) {
	ctx := context.Background()
	accessor := &fakeAccessor{data: []byte(`{"account_id":"ACC-1","account_auth":"s3cret"}`)}
	store := &GCPStore{client: accessor, projectID: "shop-prod", logger: zap.NewNop()}

	got, err := store.GetSecret(ctx, "ecorepay/default")
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", got["account_id"])
	assert.Equal(t, "projects/shop-prod/secrets/ecorepay-default/versions/latest", accessor.name)

	accessor.err = status.Error(codes.NotFound, "secret missing")
	_, err = store.GetSecret(ctx, "ecorepay-mc")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
	assert.NoError(t, store.Close())
}
