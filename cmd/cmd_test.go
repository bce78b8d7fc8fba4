package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/asset/scene/reader"
)

const testScene = `
objects:
  - type: sphere
    center: [0, 1, 0]
    radius: 1
  - type: box
    min: [2, 0, 0]
    max: [3, 1, 1]
meshes:
  - name: cube
    primitive: cube
instances:
  - mesh: cube
    translate: [5, 0, 0]
  - mesh: cube
    translate: [-5, 0, 0]
`

func TestCompileAndInspect(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(sceneFile, []byte(testScene), 0o644); err != nil {
		t.Fatal(err)
	}

	app := NewApp()
	if err := app.Run([]string{"accel", "compile", "--seed", "42", sceneFile}); err != nil {
		t.Fatal(err)
	}

	compiled := filepath.Join(dir, "scene.accl")
	sc, err := reader.ReadScene(compiled)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.BlasRoots) != 2 || len(sc.TlasNodeList) != 3 {
		t.Fatalf("expected 2 BLAS and 3 TLAS nodes; got %d and %d", len(sc.BlasRoots), len(sc.TlasNodeList))
	}

	type spec struct {
		args   []string
		expErr bool
	}
	specs := []spec{
		{[]string{"accel", "info", compiled}, false},
		{[]string{"accel", "dump", "--tree", "tlas", compiled}, false},
		{[]string{"accel", "-v", "dump", "-t", "median", compiled}, false},
		{[]string{"accel", "dump", "--tree", "blas", "--blas", "1", "--max-depth", "1", compiled}, false},
		{[]string{"accel", "dump", "--tree", "blas", "--blas", "7", compiled}, true},
		{[]string{"accel", "dump", "--tree", "bogus", compiled}, true},
		{[]string{"accel", "export-gltf", compiled}, false},
		{[]string{"accel", "export-gltf", "-t", "tlas", "-o", filepath.Join(dir, "tlas.glb"), compiled}, false},
		{[]string{"accel", "compile", "-m", "all-in-one", "-o", filepath.Join(dir, "flat.accl"), sceneFile}, false},
		{[]string{"accel", "info"}, true},
		{[]string{"accel", "compile", "--mode", "bogus", sceneFile}, true},
		{[]string{"accel", "compile", "--out", "a.accl", sceneFile, sceneFile}, true},
	}

	for index, s := range specs {
		err := app.Run(s.args)
		if s.expErr && err == nil {
			t.Fatalf("[spec %d] expected an error running %v", index, s.args)
		} else if !s.expErr && err != nil {
			t.Fatalf("[spec %d] unexpected error running %v: %v", index, s.args, err)
		}
	}

	for _, name := range []string{"scene.glb", "tlas.glb"} {
		if _, err = os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to be exported: %v", name, err)
		}
	}

	flat, err := reader.ReadScene(filepath.Join(dir, "flat.accl"))
	if err != nil {
		t.Fatal(err)
	}
	if flat.Mode != scene.BvhAllInOne || len(flat.TlasNodeList) != 0 {
		t.Fatalf("expected an all-in-one scene without TLAS; got mode %v with %d TLAS nodes", flat.Mode, len(flat.TlasNodeList))
	}
}

func TestVersionFlag(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp()
	app.Writer = &buf
	if err := app.Run([]string{"accel", "--version"}); err != nil {
		t.Fatal(err)
	}
	if exp := "accel version " + app.Version; !strings.Contains(buf.String(), exp) {
		t.Fatalf("expected output to contain %q; got %q", exp, buf.String())
	}
}
