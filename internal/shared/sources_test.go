package shared_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintech_reviews/internal/shared"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSources_DefaultWhenEmptyPath(t *testing.T) {
	out, err := shared.LoadSources("")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "CBE", out[0].Name)
}

func TestLoadSources_File(t *testing.T) {
	path := writeFile(t, `
sources:
  - name: " Telebirr "
    app_name: telebirr
    app_id: cn.tydic.ethiopay
    aliases: [Ethio Telecom]
  - name: CBE
`)
	out, err := shared.LoadSources(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Telebirr", out[0].Name)
	assert.Equal(t, "cn.tydic.ethiopay", out[0].AppID)

	s, ok := shared.FindSource(out, "ethio telecom")
	require.True(t, ok)
	assert.Equal(t, "Telebirr", s.Name)
	assert.Equal(t, "CBE", out[1].DisplayApp())
}

func TestLoadSources_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"duplicate": "sources:\n  - name: CBE\n  - name: cbe\n",
		"unnamed":   "sources:\n  - app_name: x\n",
		"empty":     "sources: []\n",
		"malformed": "sources: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := shared.LoadSources(writeFile(t, body))
			require.Error(t, err)
		})
	}

	_, err := shared.LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFindSource_Unknown(t *testing.T) {
	_, ok := shared.FindSource(shared.DefaultSources, "Awash")
	assert.False(t, ok)
}
