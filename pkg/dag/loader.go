package dag

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

// LoadFile reads and parses a workflow definition from path.
func LoadFile(path string) (*TransitionGraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	g, err := Parse(src)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	return g, nil
}

// sourcePattern matches timestamped definition files, "<entry>_<stamp>.yml".
var sourcePattern = regexp.MustCompile(`^(.+)_(\d+)\.yml$`)

// FindLatestSource returns the newest definition for entry in dir, judged
// by the name-embedded timestamp. Stamps are zero-padded so lexical order
// is chronological order.
func FindLatestSource(dir, entry string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, entry+"_*.yml"))
	if err != nil {
		return "", errors.Trace(err)
	}
	var candidates []string
	for _, m := range matches {
		sub := sourcePattern.FindStringSubmatch(filepath.Base(m))
		if sub != nil && sub[1] == entry {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", errors.NotFoundf("definition for entrypoint %q in %s", entry, dir)
	}
	sort.Strings(candidates)
	latest := candidates[len(candidates)-1]
	log.WithFields(log.Fields{"entry": entry, "source": latest}).Debug("selected latest definition")
	return latest, nil
}

// FindEntrypoints lists every entrypoint that has at least one timestamped
// definition in dir, sorted by name.
func FindEntrypoints(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sub := sourcePattern.FindStringSubmatch(e.Name())
		if sub == nil {
			continue
		}
		if !seen[sub[1]] {
			seen[sub[1]] = true
			out = append(out, sub[1])
		}
	}
	sort.Strings(out)
	return out, nil
}
