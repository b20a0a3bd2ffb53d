package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorefrontConfigDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewStorefrontConfigHolder(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, DefaultStorefrontConfig(), holder.Get())
}

func TestStorefrontConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`storefront:
  routes:
    thanks: /welcome
    invoice: /team/invoice
    learn: /course
    login: /signin
    oauth_redirect: /callback
  signup_tags:
    purchased: 42
    bulk: 43
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storefront.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewStorefrontConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "/welcome", cfg.Routes.Thanks)
	assert.Equal(t, "/team/invoice", cfg.Routes.Invoice)
	assert.Equal(t, "/callback", cfg.Routes.OAuthRedirect)
	assert.Equal(t, int64(42), cfg.SignupTags.Purchased)
	assert.Equal(t, int64(43), cfg.SignupTags.Bulk)
}

func TestLoadDropsDevTokenOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEV_USER_TOKEN", "dev-token")

	cfg := Load()
	assert.Empty(t, cfg.DevUserToken)

	t.Setenv("ENVIRONMENT", "development")
	cfg = Load()
	assert.Equal(t, "dev-token", cfg.DevUserToken)
}
