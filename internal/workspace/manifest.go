package workspace

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// manifestFile is the on-disk shape of a workspace.toml, the Go port's
// stand-in for a parsed .var assembly plus its packages' .upp files.
type manifestFile struct {
	Name           string            `toml:"name"`
	AssemblyPath   string            `toml:"assembly_path"`
	BaseDir        string            `toml:"base_dir"`
	PrimaryPackage string            `toml:"primary_package"`
	Packages       []manifestPackage `toml:"package"`
}

type manifestPackage struct {
	Name         string   `toml:"name"`
	Path         string   `toml:"path"`
	Description  string   `toml:"description"`
	Dependencies []string `toml:"dependencies"`
	Files        []string `toml:"files"`
	Primary      bool     `toml:"primary"`
}

// LoadWorkspace parses a workspace.toml manifest into a *Workspace.
// Grounded on UppAssembly::parse_var_content/parse_upp_file_content,
// collapsed into a single document since the Go port has no reason to
// keep U++'s one-.upp-file-per-package layout on disk.
func LoadWorkspace(data []byte) (*Workspace, error) {
	var mf manifestFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, vferrors.ParseError("upp.wksp.open", err.Error())
	}

	ws := NewWorkspace(mf.Name, mf.AssemblyPath)
	ws.BaseDir = mf.BaseDir

	for i := range mf.Packages {
		p := mf.Packages[i]
		isPrimary := p.Primary || (mf.PrimaryPackage != "" && p.Name == mf.PrimaryPackage)
		ws.AddPackage(&Package{
			Name:         p.Name,
			Path:         p.Path,
			Description:  p.Description,
			Dependencies: append([]string(nil), p.Dependencies...),
			Files:        append([]string(nil), p.Files...),
			IsPrimary:    isPrimary,
		})
	}
	if mf.PrimaryPackage != "" {
		ws.PrimaryPackage = mf.PrimaryPackage
	}
	return ws, nil
}

// builderManifestFile is the on-disk shape of a builders.toml: every
// known builder plus which one starts active.
type builderManifestFile struct {
	Active   string            `toml:"active"`
	Builders []builderManifest `toml:"builder"`
}

type builderManifest struct {
	ID         string            `toml:"id"`
	SourcePath string            `toml:"source_path"`
	Values     map[string]string `toml:"values"`
}

// LoadBuilderRegistry parses a builders.toml manifest into a *Registry.
// Grounded on the forward-declared UppBuilderRegistry/UppBuildMethod
// pair referenced throughout upp_toolchain.h and upp_workspace_build.cpp.
func LoadBuilderRegistry(data []byte) (*Registry, error) {
	var bm builderManifestFile
	if err := toml.Unmarshal(data, &bm); err != nil {
		return nil, vferrors.ParseError("upp.builder.load", err.Error())
	}

	reg := NewRegistry()
	for _, b := range bm.Builders {
		values := make(map[string]string, len(b.Values))
		for k, v := range b.Values {
			values[k] = v
		}
		reg.Add(&Builder{ID: b.ID, SourcePath: b.SourcePath, Values: values})
	}
	if bm.Active != "" {
		if err := reg.SetActive(bm.Active); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
