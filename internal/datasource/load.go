package datasource

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
)

// Resolve picks the bundle to show for path (file, directory or empty).
func Resolve(path string) (DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Path:                   path,
		ValidateAfterDiscovery: true,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("datasource: %s", msg) },
	})
	if err != nil {
		return DataSource{}, err
	}
	if len(sources) == 0 {
		return DataSource{}, fmt.Errorf("no bundle found in %s", path)
	}
	return SelectBestSource(sources)
}

// Read returns the raw bytes of a source.
func Read(s DataSource) ([]byte, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", s.Path, err)
	}
	return raw, nil
}

// Load resolves path and reads the chosen bundle.
func Load(path string) ([]byte, DataSource, error) {
	src, err := Resolve(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	raw, err := Read(src)
	if err != nil {
		return nil, src, err
	}
	return raw, src, nil
}
