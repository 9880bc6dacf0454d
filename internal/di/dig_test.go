package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

// Test fixtures for dependency injection
type store struct {
	name string
}

type gate struct {
	store *store
	env   string
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		opts    []Option
		wantErr bool
	}{
		{
			name: "no extra providers",
			env:  "dev",
		},
		{
			name: "single provider",
			env:  "stg",
			opts: []Option{
				WithProviders(func() *store { return &store{name: "stg-store"} }),
			},
		},
		{
			name: "provider with dependencies",
			env:  "prd",
			opts: []Option{
				WithProviders(
					func() *store { return &store{name: "prd-store"} },
					func(s *store, env string) *gate { return &gate{store: s, env: env} },
				),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			container, err := New(tc.env, tc.opts...)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, container)
		})
	}
}

func TestNew_DuplicateProviderFails(t *testing.T) {
	_, err := New("dev",
		WithProviders(
			func() *store { return &store{name: "first"} },
			func() *store { return &store{name: "second"} },
		),
	)
	assert.Error(t, err)
}

func TestNew_ProvidesEnvironmentAndDryRun(t *testing.T) {
	container, err := New("stg", WithDryRun(true))
	require.NoError(t, err)

	var gotEnv string
	var gotDryRun DryRun
	err = container.Invoke(func(env string, dryRun DryRun) {
		gotEnv = env
		gotDryRun = dryRun
	})
	require.NoError(t, err)
	assert.Equal(t, "stg", gotEnv)
	assert.True(t, bool(gotDryRun))
}

func TestMustGet(t *testing.T) {
	t.Run("resolves nested dependencies", func(t *testing.T) {
		container, err := New("prd",
			WithProviders(
				func() *store { return &store{name: "prd-store"} },
				func(s *store, env string) *gate { return &gate{store: s, env: env} },
			),
		)
		require.NoError(t, err)

		g := MustGet[*gate](container)
		assert.Equal(t, "prd-store", g.store.name)
		assert.Equal(t, "prd", g.env)
	})

	t.Run("panics when dependency is missing", func(t *testing.T) {
		container, err := New("dev")
		require.NoError(t, err)

		assert.Panics(t, func() {
			_ = MustGet[*gate](container)
		})
	})
}

func TestContainer_Interface(t *testing.T) {
	var _ Container = (*dig.Container)(nil)
}
