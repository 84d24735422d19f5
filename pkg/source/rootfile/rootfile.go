// Package rootfile reads columns out of ROOT files with groot.
package rootfile

import (
	"fmt"
	"reflect"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/source"
)

// Opener implements source.Opener for ROOT files.
type Opener struct{}

// Open opens the ROOT file at path.
func (Opener) Open(path string) (source.Handle, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSource, "open %s", path)
	}
	return &handle{f: f}, nil
}

type handle struct {
	f *riofs.File
}

func (h *handle) Close() error { return h.f.Close() }

// Tables lists every tree key as "name;cycle".
func (h *handle) Tables() ([]source.Table, error) {
	var out []source.Table
	for _, k := range h.f.Keys() {
		obj, err := k.Object()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeSource, "load key %s", k.Name())
		}
		t, ok := obj.(rtree.Tree)
		if !ok {
			continue
		}
		out = append(out, &table{name: fmt.Sprintf("%s;%d", k.Name(), k.Cycle()), tree: t})
	}
	return out, nil
}

type table struct {
	name string
	tree rtree.Tree
}

func (t *table) Name() string { return t.name }

func (t *table) Columns() []string {
	branches := t.tree.Branches()
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name()
	}
	return names
}

// Read loads every entry of the named branches.
func (t *table) Read(names []string) (map[string]column.RawColumn, error) {
	all := rtree.NewReadVars(t.tree)
	byName := make(map[string]rtree.ReadVar, len(all))
	for _, rv := range all {
		if _, dup := byName[rv.Name]; !dup {
			byName[rv.Name] = rv
		}
	}

	rvars := make([]rtree.ReadVar, 0, len(names))
	accs := make([]accumulator, 0, len(names))
	for _, name := range names {
		rv, ok := byName[name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeMissingColumn, "tree %s has no branch %q", t.name, name)
		}
		acc, err := newAccumulator(reflect.TypeOf(rv.Value).Elem(), int(t.tree.Entries()))
		if err != nil {
			return nil, errors.Wrapf(err, errors.TypeOr(err, errors.ErrorTypeSource), "branch %q", name)
		}
		rvars = append(rvars, rv)
		accs = append(accs, acc)
	}

	r, err := rtree.NewReader(t.tree, rvars)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSource, "reader for tree %s", t.name)
	}
	defer r.Close()

	err = r.Read(func(rtree.RCtx) error {
		for i, rv := range rvars {
			accs[i].add(reflect.ValueOf(rv.Value).Elem())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSource, "read tree %s", t.name)
	}

	out := make(map[string]column.RawColumn, len(names))
	for i, name := range names {
		out[name] = accs[i].raw(name)
	}
	return out, nil
}
