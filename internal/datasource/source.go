// Package datasource discovers and reads STIX bundle files for tg. A path may
// name a bundle directly or a directory holding several; the freshest valid
// bundle wins.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/threatgraph/pkg/stix"
)

// SourceType identifies where a bundle was found.
type SourceType string

const (
	// SourceTypeExplicit is a file named on the command line.
	SourceTypeExplicit SourceType = "explicit"
	// SourceTypeBundle is a file named bundle.json inside a directory.
	SourceTypeBundle SourceType = "bundle"
	// SourceTypeJSON is any other .json file inside a directory.
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = more authoritative)
const (
	PriorityExplicit = 100
	PriorityBundle   = 80
	PriorityJSON     = 50
)

// DataSource is one candidate bundle file.
type DataSource struct {
	Type            SourceType `json:"type"`
	Path            string     `json:"path"`
	Priority        int        `json:"priority"`
	ModTime         time.Time  `json:"mod_time"`
	Size            int64      `json:"size"`
	Valid           bool       `json:"valid"`
	ValidationError string     `json:"validation_error,omitempty"`
	// ObjectCount is set during validation.
	ObjectCount int `json:"object_count"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, objects=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ObjectCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Path is a bundle file or a directory of bundles. Empty means TG_BUNDLE
	// or the working directory.
	Path                   string
	ValidateAfterDiscovery bool
	IncludeInvalid         bool
	Verbose                bool
	Logger                 func(msg string)
}

// DiscoverSources lists candidate bundles, newest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	path := opts.Path
	if path == "" {
		if env := os.Getenv("TG_BUNDLE"); env != "" {
			path = env
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = wd
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var sources []DataSource
	if info.IsDir() {
		sources, err = discoverDir(path, opts)
		if err != nil {
			return nil, err
		}
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, DataSource{
			Type:     SourceTypeExplicit,
			Path:     abs,
			Priority: PriorityExplicit,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources in %s", len(sources), path))
	}
	return sources, nil
}

func discoverDir(dir string, opts DiscoveryOptions) ([]DataSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		// Editor and backup leftovers.
		if strings.HasPrefix(name, ".") || strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		src := DataSource{
			Type:     SourceTypeJSON,
			Path:     filepath.Join(dir, name),
			Priority: PriorityJSON,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		}
		if strings.EqualFold(name, "bundle.json") {
			src.Type = SourceTypeBundle
			src.Priority = PriorityBundle
		}
		sources = append(sources, src)

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}
	return sources, nil
}

// ValidateSource checks that the file decodes as a bundle envelope. Content
// validation happens later in the controller so warnings reach the user.
func ValidateSource(s *DataSource) error {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	b, err := stix.Decode(raw)
	if err == nil && b.Type != "bundle" {
		err = fmt.Errorf("type is %q, not bundle", b.Type)
	}
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.ObjectCount = len(b.Objects)
	return nil
}

// SelectBestSource returns the first valid source of a list sorted by
// DiscoverSources.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid bundle among %d candidates", len(sources))
}
