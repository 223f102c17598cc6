package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_SensibleZeroConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7, cfg.MaxDepth)
	assert.Equal(t, 1000, cfg.MaxCollectionSize)
	assert.Equal(t, 100000, cfg.MaxObjects)
	assert.Equal(t, "beanbridge", cfg.MBeanQualifier)
	assert.Empty(t, cfg.DispatcherClasses)
	assert.Empty(t, cfg.DetectorPlugins)
	assert.Nil(t, cfg.RestrictorClass)
}

func TestLoad_NoPath_ReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ValidConfig_OverridesDefaults(t *testing.T) {
	content := `
maxDepth: 3
historyMaxEntries: 5
debug: true
mbeanQualifier: acme
dispatcherClasses:
  - name: legacy
    addr: "http://legacy:8080"
detectorPlugins:
  - name: tomcat
    addr: "http://tomcat-detector:9000"
restrictorClass:
  name: opa
  addr: "http://opa:8181"
`
	path := writeTemp(t, content)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 5, cfg.HistoryMaxEntries)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "acme", cfg.MBeanQualifier)

	require.Len(t, cfg.DispatcherClasses, 1)
	assert.Equal(t, "legacy", cfg.DispatcherClasses[0].Name)
	assert.Equal(t, "http://legacy:8080", cfg.DispatcherClasses[0].Addr)

	require.Len(t, cfg.DetectorPlugins, 1)
	assert.Equal(t, "tomcat", cfg.DetectorPlugins[0].Name)

	require.NotNil(t, cfg.RestrictorClass)
	assert.Equal(t, "opa", cfg.RestrictorClass.Name)
}

func TestLoad_MissingDispatcherAddr_ReturnsError(t *testing.T) {
	content := `
dispatcherClasses:
  - name: legacy
`
	path := writeTemp(t, content)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "legacy")
	assert.Contains(t, err.Error(), "addr")
}

func TestLoad_MissingDetectorAddr_ReturnsError(t *testing.T) {
	content := `
detectorPlugins:
  - name: tomcat
`
	path := writeTemp(t, content)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tomcat")
}

func TestLoad_MissingRestrictorAddr_ReturnsError(t *testing.T) {
	content := `
restrictorClass:
  name: opa
`
	path := writeTemp(t, content)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "opa")
}

func TestLoad_NegativeLimits_ReturnsError(t *testing.T) {
	content := `
maxDepth: -1
`
	path := writeTemp(t, content)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	path := writeTemp(t, "{{not yaml")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolvePath_EnvVar_TakesPriority(t *testing.T) {
	tmp := writeTemp(t, "mbeanQualifier: x")
	t.Setenv("BRIDGE_CONFIG", tmp)

	assert.Equal(t, tmp, ResolvePath())
}

func TestResolvePath_NoEnvVar_FallsBackToDefaultFile(t *testing.T) {
	t.Setenv("BRIDGE_CONFIG", "")

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("mbeanQualifier: x"), 0o644))

	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(origDir)

	assert.Equal(t, "bridge.yaml", ResolvePath())
}

func TestResolvePath_NoEnvVar_NoFile_ReturnsEmpty(t *testing.T) {
	t.Setenv("BRIDGE_CONFIG", "")

	dir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(origDir)

	assert.Equal(t, "", ResolvePath())
}

// writeTemp creates a temporary YAML file and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	f.Close()
	return f.Name()
}
