package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[ref], nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in           string
		provider     string
		ref          string
		wantParsable bool
	}{
		{"secretref:env:TOKEN", "env", "TOKEN", true},
		{"secretref:file:/run/a:b", "file", "/run/a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, ref, ok := ParseSecretRef(tt.in)
			assert.Equal(t, tt.wantParsable, ok)
			assert.Equal(t, tt.provider, p)
			assert.Equal(t, tt.ref, ref)
		})
	}
}

func TestResolver_EnvProvider(t *testing.T) {
	t.Setenv("QS_TEST_TOKEN", "abc")
	r := NewResolver(true)

	got, err := r.ResolveValue(context.Background(), "secretref:env:QS_TEST_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = r.ResolveValue(context.Background(), "secretref:env:QS_TEST_UNSET")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_FileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	r := NewResolver(true)

	got, err := r.ResolveValue(context.Background(), "secretref:file:"+path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	_, err = r.ResolveValue(context.Background(), "secretref:file:"+path+".missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_ResolvesInlineSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"a": "one", "b": "two"}})

	got, err := r.ResolveValue(context.Background(), "Bearer secretref:stub:a and secretref:stub:b")
	require.NoError(t, err)
	assert.Equal(t, "Bearer one and two", got)
}

func TestResolver_ExpandsEnvBeforeRefs(t *testing.T) {
	t.Setenv("QS_PROVIDER", "stub")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"k": "v"}})

	got, err := r.ResolveValue(context.Background(), "secretref:${QS_PROVIDER}:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestResolver_Errors(t *testing.T) {
	boom := errors.New("explode")
	strict := NewResolver(true,
		&stubProvider{name: "empty", values: map[string]string{}},
		&stubProvider{name: "broken", err: boom},
	)

	_, err := strict.ResolveValue(context.Background(), "secretref:empty:x")
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = strict.ResolveValue(context.Background(), "secretref:broken:x")
	assert.ErrorIs(t, err, boom)

	_, err = strict.ResolveValue(context.Background(), "secretref:vault:x")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	lax := NewResolver(false, &stubProvider{name: "empty", values: map[string]string{}})
	got, err := lax.ResolveValue(context.Background(), "secretref:empty:x")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolver_ResolveMap(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	m, err := r.ResolveMap(context.Background(), map[string]string{
		"Authorization": "Bearer secretref:stub:alpha",
		"X-Plain":       "plain",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer one", "X-Plain": "plain"}, m)

	_, err = r.ResolveMap(context.Background(), map[string]string{"X-Bad": "${QS_NOT_SET_ANYWHERE}"})
	assert.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), `"X-Bad"`)
}
