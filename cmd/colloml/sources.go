package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/collomatique/colloml/pkg/colloml"
)

const sourceExt = ".cml"

// loadSources reads every path into a module. A directory contributes each of
// its .cml files; a file contributes itself regardless of extension. The
// module name is the file name without its extension.
func loadSources(paths []string) ([]colloml.Source, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "accessing %s", path)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading directory %s", path)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), sourceExt) {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no source files found")
	}

	sources := make([]colloml.Source, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if prev, ok := seen[name]; ok {
			return nil, errors.Errorf("module %q defined by both %s and %s", name, prev, file)
		}
		seen[name] = file
		text, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", file)
		}
		sources = append(sources, colloml.Source{Module: name, Text: string(text)})
	}
	return sources, nil
}

// buildSchema assembles the host schema a program compiles against: the
// --schema manifest file when given, with --external flags layered on top.
func buildSchema(cfg *Config) (colloml.HostSchema, error) {
	flags, err := schemaFromFlags(cfg.Externals)
	if err != nil {
		return colloml.HostSchema{}, err
	}
	if cfg.Schema == "" {
		return flags, nil
	}
	schema, err := loadManifest(cfg.Schema)
	if err != nil {
		return colloml.HostSchema{}, err
	}
	for name, params := range flags.Externals {
		schema.Externals[name] = params
	}
	return schema, nil
}

// schemaFromFlags builds the host schema from --external flags. Each flag is
// a variable name, optionally followed by :N for N Int-typed arguments.
func schemaFromFlags(externals []string) (colloml.HostSchema, error) {
	schema := colloml.HostSchema{Externals: make(map[string][]colloml.ExprType)}
	for _, spec := range externals {
		name, arityStr, found := strings.Cut(spec, ":")
		if name == "" {
			return colloml.HostSchema{}, errors.Errorf("invalid external %q", spec)
		}
		var params []colloml.ExprType
		if found {
			arity, err := strconv.Atoi(arityStr)
			if err != nil || arity < 0 {
				return colloml.HostSchema{}, errors.Errorf("invalid external arity in %q", spec)
			}
			params = make([]colloml.ExprType, arity)
			for i := range params {
				params[i] = colloml.Simple(colloml.IntType())
			}
		}
		schema.Externals[name] = params
	}
	return schema, nil
}
