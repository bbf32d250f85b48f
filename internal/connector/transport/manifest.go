package transport

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// manifestFileName is the connector.ron-equivalent manifest this
// transport looks for when a Binary spec names a directory rather than
// a bare executable path.
const manifestFileName = "connector.manifest.json"

// Manifest describes a connector binary's own identity: its declared
// name, a free-form type tag, and the executable file to run inside
// its directory.
type Manifest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	ExecutableName string `json:"executable_name"`
}

// readManifest loads and parses the manifest file inside dir.
func readManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.Configuration, err, "reading connector manifest %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, taxonomy.Wrap(taxonomy.Configuration, err, "parsing connector manifest %s", path)
	}
	if m.ExecutableName == "" {
		return nil, taxonomy.New(taxonomy.Configuration, "connector manifest %s is missing executable_name", path)
	}
	return &m, nil
}

// resolveBinary turns a path that may name either a bare executable or
// a directory holding one (alongside a manifest) into the concrete
// executable to exec. A path that does not exist at all is passed
// through unresolved; exec.Cmd will surface the real error when it
// tries to launch it.
func resolveBinary(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}
	m, err := readManifest(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(path, m.ExecutableName), nil
}
