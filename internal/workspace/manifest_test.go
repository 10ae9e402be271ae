package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleWorkspaceTOML = `
name = "demo"
assembly_path = "/ws/demo.var"
base_dir = "/ws"
primary_package = "App"

[[package]]
name = "Core"
path = "Core"
dependencies = []

[[package]]
name = "App"
path = "App"
description = "demo app"
dependencies = ["Core"]
files = ["main.cpp"]
`

const sampleBuilderTOML = `
active = "gcc"

[[builder]]
id = "gcc"
source_path = "/etc/umk/gcc.bm"
[builder.values]
COMMAND = "umk {assembly} {package} {build_type} {flags} -o {output}"
INCLUDES = "/usr/include"
`

func TestLoadWorkspaceParsesPackagesAndPrimary(t *testing.T) {
	ws, err := LoadWorkspace([]byte(sampleWorkspaceTOML))
	require.NoError(t, err)
	require.Equal(t, "demo", ws.Name)
	require.Equal(t, "App", ws.PrimaryPackage)

	app, ok := ws.GetPackage("App")
	require.True(t, ok)
	require.True(t, app.IsPrimary)
	require.Equal(t, []string{"Core"}, app.Dependencies)
	require.Equal(t, []string{"main.cpp"}, app.Files)

	core, ok := ws.GetPackage("Core")
	require.True(t, ok)
	require.False(t, core.IsPrimary)
}

func TestLoadWorkspaceRejectsMalformedToml(t *testing.T) {
	_, err := LoadWorkspace([]byte("name = [unterminated"))
	require.Error(t, err)
}

func TestLoadBuilderRegistryParsesBuildersAndActive(t *testing.T) {
	reg, err := LoadBuilderRegistry([]byte(sampleBuilderTOML))
	require.NoError(t, err)

	active, ok := reg.Active()
	require.True(t, ok)
	require.Equal(t, "gcc", active.ID)
	require.Equal(t, "/etc/umk/gcc.bm", active.SourcePath)

	cmd, ok := active.Get("COMMAND")
	require.True(t, ok)
	require.Contains(t, cmd, "{package}")
}

func TestLoadBuilderRegistryRejectsUnknownActive(t *testing.T) {
	_, err := LoadBuilderRegistry([]byte(`
active = "missing"

[[builder]]
id = "gcc"
`))
	require.Error(t, err)
}
