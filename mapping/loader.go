package mapping

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var embeddedProfiles embed.FS

const profileExt = ".yaml"

// ProfileRegistry holds mapping profiles by name.
type ProfileRegistry struct {
	profiles map[string]*Profile
}

// NewProfileRegistry returns a registry holding the built-in profiles.
func NewProfileRegistry() (*ProfileRegistry, error) {
	r := &ProfileRegistry{profiles: make(map[string]*Profile)}
	if err := r.loadFS(embeddedProfiles, "profiles"); err != nil {
		return nil, fmt.Errorf("built-in profiles: %w", err)
	}
	return r, nil
}

// LoadFromDirectory adds every profile found in dir. A profile replaces any
// already registered under the same name.
func (r *ProfileRegistry) LoadFromDirectory(dir string) error {
	if err := r.loadFS(os.DirFS(dir), "."); err != nil {
		return fmt.Errorf("profile directory %s: %w", dir, err)
	}
	return nil
}

// loadFS reads the *.yaml files of one directory. Profiles without a name
// are named after their file.
func (r *ProfileRegistry) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), profileExt) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		p, err := parseProfile(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(entry.Name(), profileExt)
		}
		r.profiles[p.Name] = p
	}
	return nil
}

// LoadProfileFromString parses a profile from YAML.
func LoadProfileFromString(content string) (*Profile, error) {
	return parseProfile([]byte(content))
}

// parseProfile decodes a profile and rejects rules that cannot project
// anything.
func parseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}
	for i, rule := range p.Rules {
		switch {
		case rule.Source == "":
			return nil, fmt.Errorf("rule %d: missing source", i)
		case len(rule.Targets) == 0:
			return nil, fmt.Errorf("rule %d (%s): no targets", i, rule.Source)
		}
	}
	return &p, nil
}

// Get returns the named profile.
func (r *ProfileRegistry) Get(name string) (*Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// MustGet is Get with an error naming the available profiles.
func (r *ProfileRegistry) MustGet(name string) (*Profile, error) {
	if p, ok := r.profiles[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown mapping profile %q (available: %s)", name, strings.Join(r.List(), ", "))
}

// List returns the profile names in sorted order.
func (r *ProfileRegistry) List() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
