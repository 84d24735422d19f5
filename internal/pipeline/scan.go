package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/naming"
)

// Plan lists, per format, the source files still to convert.
type Plan map[encoding.Format][]string

// Job is one source file with every format it still needs.
type Job struct {
	Path    string
	Formats []encoding.Format
}

// Jobs regroups the plan by file, sorted by path, formats in canonical order.
func (p Plan) Jobs() []Job {
	byPath := make(map[string][]encoding.Format)
	for _, f := range encoding.AllFormats() {
		for _, path := range p[f] {
			byPath[path] = append(byPath[path], f)
		}
	}
	jobs := make([]Job, 0, len(byPath))
	for path, formats := range byPath {
		jobs = append(jobs, Job{Path: path, Formats: formats})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Path < jobs[j].Path })
	return jobs
}

// Empty reports whether nothing is left to convert.
func (p Plan) Empty() bool {
	for _, files := range p {
		if len(files) > 0 {
			return false
		}
	}
	return true
}

// FilePlan builds a plan converting every path to every format.
func FilePlan(paths []string, formats []encoding.Format) Plan {
	p := make(Plan, len(formats))
	for _, f := range formats {
		p[f] = append([]string(nil), paths...)
	}
	return p
}

// Scan finds, for every format, the source files whose stem matches no entry
// of that format's output directory. Output directories are created when
// missing.
func Scan(sourceDir, sourceExt string, dirs map[encoding.Format]string, formats []encoding.Format) (Plan, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "read source directory %s", sourceDir)
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sourceExt) {
			continue
		}
		sources = append(sources, e.Name())
	}
	sort.Strings(sources)

	plan := make(Plan, len(formats))
	for _, f := range formats {
		dir := dirs[f]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeFile, "create output directory %s", dir)
		}
		done, err := convertedStems(dir, f.Ext())
		if err != nil {
			return nil, err
		}
		var todo []string
		for _, name := range sources {
			if _, ok := done[naming.Stem(name, sourceExt)]; ok {
				continue
			}
			todo = append(todo, filepath.Join(sourceDir, name))
		}
		plan[f] = todo
	}
	return plan, nil
}

// convertedStems returns the stem of every entry of dir.
func convertedStems(dir, ext string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "read output directory %s", dir)
	}
	stems := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		stems[naming.Stem(e.Name(), ext)] = struct{}{}
	}
	return stems, nil
}
