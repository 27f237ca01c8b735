package providers_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/internal/backendtest"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

func TestRegistry_Build(t *testing.T) {
	b := backendtest.New(t)
	env := newEnv(t, b)
	configs := []reachfive.ProviderConfig{
		{Provider: "facebook"},
		{Provider: "twitter"},
		{Provider: "apple"},
	}

	t.Run("native first then webview", func(t *testing.T) {
		r := providers.NewRegistry(nil,
			providers.NativeCreator("facebook", requestCodeFacebook, &fakeLauncher{}),
			providers.WebViewCreator(),
		)
		built, err := r.Build(configs, env)
		require.NoError(t, err)
		require.Len(t, built, 3)

		assert.IsType(t, &providers.Native{}, built[0])
		assert.Equal(t, requestCodeFacebook, built[0].RequestCode())
		for _, p := range built[1:] {
			assert.IsType(t, &providers.Web{}, p)
			assert.Equal(t, providers.RequestCodeWebView, p.RequestCode())
		}
		assert.Equal(t, []string{"facebook", "twitter", "apple"}, []string{built[0].Name(), built[1].Name(), built[2].Name()})
	})

	t.Run("without webview unknown providers are skipped", func(t *testing.T) {
		r := providers.NewRegistry(nil, providers.NativeCreator("facebook", requestCodeFacebook, &fakeLauncher{}))
		built, err := r.Build(configs, env)
		require.NoError(t, err)
		require.Len(t, built, 1)
		assert.Equal(t, "facebook", built[0].Name())
	})

	t.Run("creator failure", func(t *testing.T) {
		boom := errors.New("boom")
		r := providers.NewRegistry(nil, providers.NewCreator("facebook", func(reachfive.ProviderConfig, *providers.Env) (reachfive.Provider, error) {
			return nil, boom
		}))
		_, err := r.Build(configs, env)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := providers.NewRegistry(nil, providers.WebViewCreator())
	r.Register(providers.NativeCreator("google", 14267, &fakeLauncher{}))
	r.Register(providers.NativeCreator("google", 14268, &fakeLauncher{}))
	assert.ElementsMatch(t, []string{"webview", "google"}, r.Names())

	built, err := r.Build([]reachfive.ProviderConfig{{Provider: "google"}}, &providers.Env{})
	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, 14268, built[0].RequestCode())
}
