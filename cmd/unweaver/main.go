// Command unweaver is the project CLI: build a graph from GeoJSON layers,
// precompute per-profile static weights, and serve the query surface.
// Grounded on the teacher's cmd/preprocess and cmd/server (flag-based,
// one verb per invocation), collapsed into one binary with subcommands
// per spec.md 6 (closer to the original's single `unweaver` cli.py entry
// point).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/azybler/unweaver/pkg/api"
	"github.com/azybler/unweaver/pkg/build"
	"github.com/azybler/unweaver/pkg/profile"
	"github.com/azybler/unweaver/pkg/store"
)

const graphFileName = "graph.gpkg"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "weight":
		err = runWeight(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Printf("unweaver %s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: unweaver <build|weight|serve> <dir> [flags]")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	precision := fs.Int("precision", 7, "coordinate rounding precision for node ids")
	changesSign := fs.String("changes-sign", "", "comma-separated attribute names to negate on reverse edges")
	fs.Parse(args)

	dir := fs.Arg(0)
	if dir == "" {
		return fmt.Errorf("missing project directory")
	}

	start := time.Now()

	layerPaths, err := build.Layers(dir)
	if err != nil {
		return err
	}
	log.Printf("Found %d GeoJSON layer(s)", len(layerPaths))

	s, err := store.Create(filepath.Join(dir, graphFileName))
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := build.Graph(s, layerPaths, *precision, splitCSV(*changesSign))
	if err != nil {
		return err
	}
	log.Printf("Wrote %d directed edges", n)

	if err := s.AddRTree(); err != nil {
		return err
	}

	log.Printf("Build complete in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func runWeight(args []string) error {
	fs := flag.NewFlagSet("weight", flag.ExitOnError)
	profileID := fs.String("profile", "", "only precompute this profile id (default: every profile with precalculate=true)")
	fs.Parse(args)

	dir := fs.Arg(0)
	if dir == "" {
		return fmt.Errorf("missing project directory")
	}

	descriptors, err := loadDescriptors(dir)
	if err != nil {
		return err
	}
	registry := profile.NewRegistry()

	s, err := store.Open(filepath.Join(dir, graphFileName))
	if err != nil {
		return err
	}
	defer s.Close()

	for _, desc := range descriptors {
		if *profileID != "" && desc.ID != *profileID {
			continue
		}
		if !desc.Precalculate {
			continue
		}
		def, ok := registry.Lookup(desc.CostFunction)
		if !ok {
			return fmt.Errorf("profile %q: unregistered cost_function %q", desc.ID, desc.CostFunction)
		}
		start := time.Now()
		n, err := profile.Precompute(s, desc.ID, def, desc.Static)
		if err != nil {
			return err
		}
		log.Printf("%s: precomputed %d edges in %s", desc.ID, n, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "localhost", "bind host")
	port := fs.Int("port", 8000, "bind port")
	corsOrigin := fs.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	fs.Bool("debug", false, "enable verbose request logging (reserved)")
	fs.Parse(args)

	dir := fs.Arg(0)
	if dir == "" {
		return fmt.Errorf("missing project directory")
	}

	descriptors, err := loadDescriptors(dir)
	if err != nil {
		return err
	}

	s, err := store.Open(filepath.Join(dir, graphFileName))
	if err != nil {
		return err
	}
	defer s.Close()

	registry := profile.NewRegistry()
	handlers := api.NewHandlers(s, descriptors, registry)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	srv := api.NewServer(cfg, handlers)
	return api.ListenAndServe(srv)
}

// loadDescriptors loads every profile-*.json/.yaml/.yml file directly under
// dir, keyed by descriptor id.
func loadDescriptors(dir string) (map[string]*profile.Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unweaver: read %s: %w", dir, err)
	}

	out := map[string]*profile.Descriptor{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "profile-") {
			continue
		}
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		desc, err := profile.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out[desc.ID] = desc
	}
	return out, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
