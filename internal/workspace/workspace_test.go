package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddPackageTracksPrimaryAndOrder(t *testing.T) {
	ws := NewWorkspace("demo", "/ws/demo.var")
	ws.AddPackage(&Package{Name: "Core"})
	ws.AddPackage(&Package{Name: "App", IsPrimary: true})
	ws.AddPackage(&Package{Name: "Plugin"})

	require.Equal(t, "App", ws.PrimaryPackage)
	primary, ok := ws.Primary()
	require.True(t, ok)
	require.Equal(t, "App", primary.Name)

	names := make([]string, 0, 3)
	for _, p := range ws.AllPackages() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"Core", "App", "Plugin"}, names)
}

func TestAddPackageReplacesWithoutDuplicatingOrder(t *testing.T) {
	ws := NewWorkspace("demo", "")
	ws.AddPackage(&Package{Name: "Core", Description: "v1"})
	ws.AddPackage(&Package{Name: "Core", Description: "v2"})

	require.Len(t, ws.AllPackages(), 1)
	pkg, ok := ws.GetPackage("Core")
	require.True(t, ok)
	require.Equal(t, "v2", pkg.Description)
}

func TestBuilderRegistryGetAndActive(t *testing.T) {
	reg := NewRegistry()
	reg.Add(&Builder{ID: "gcc", Values: map[string]string{"COMMAND": "gcc {package}"}})
	reg.Add(&Builder{ID: "clang"})

	active, ok := reg.Active()
	require.True(t, ok)
	require.Equal(t, "gcc", active.ID)

	require.NoError(t, reg.SetActive("clang"))
	active, ok = reg.Active()
	require.True(t, ok)
	require.Equal(t, "clang", active.ID)

	require.Error(t, reg.SetActive("missing"))
}

func TestBuilderSplitList(t *testing.T) {
	b := &Builder{Values: map[string]string{"INCLUDES": "/usr/include; /opt/inc ;;"}}
	require.Equal(t, []string{"/usr/include", "/opt/inc"}, b.SplitList("INCLUDES", ';'))
	require.Nil(t, b.SplitList("MISSING", ';'))
}
