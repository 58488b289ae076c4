package scenario

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// TimestampPlaceholder expands to the load time in Unix milliseconds.
const TimestampPlaceholder = "{{timestamp}}"

// Load decodes a YAML list of scenarios and expands placeholders with now.
func Load(r io.Reader, now time.Time) ([]Scenario, error) {
	var scenarios []Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&scenarios); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding scenarios: %w", err)
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	for i := range scenarios {
		scenarios[i].Payload = expand(scenarios[i].Payload, stamp)
	}
	return scenarios, nil
}

// LoadFile loads scenarios from a YAML file.
func LoadFile(name string, now time.Time) ([]Scenario, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening fixtures: %w", err)
	}
	defer f.Close()
	scenarios, err := Load(f, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return scenarios, nil
}

// Builtin returns the scenarios shipped with the harness: the builder feature
// checks followed by the full journeys.
func Builtin(now time.Time) ([]Scenario, error) {
	return loadFS(fixtures, "fixtures", now)
}

func loadFS(fsys fs.FS, dir string, now time.Time) ([]Scenario, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var all []Scenario
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		f, err := fsys.Open(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		scenarios, err := Load(f, now)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		all = append(all, scenarios...)
	}
	return all, nil
}

func expand(p Payload, stamp string) Payload {
	for k, v := range p {
		p[k] = expandValue(v, stamp)
	}
	return p
}

func expandValue(v any, stamp string) any {
	switch x := v.(type) {
	case string:
		return strings.ReplaceAll(x, TimestampPlaceholder, stamp)
	case map[string]any:
		return map[string]any(expand(Payload(x), stamp))
	case []any:
		for i := range x {
			x[i] = expandValue(x[i], stamp)
		}
		return x
	}
	return v
}
