package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/asset/scene/reader"
	"github.com/achilleasa/accel/asset/scene/visualize"
	"github.com/urfave/cli"
)

// A named tree selected for debugging.
type debugTree struct {
	name string
	walk visualize.Walker
}

// Select the trees of a compiled scene matching the tree flag.
func selectTrees(ctx *cli.Context, sc *scene.Scene) ([]debugTree, error) {
	treeName := ctx.String("tree")
	maxDepth := ctx.Int("max-depth")
	trees := make([]debugTree, 0)

	if treeName == "all" || treeName == "median" {
		if len(sc.BoundingBoxes) != 0 {
			trees = append(trees, debugTree{"median", visualize.BoundingBoxWalker(sc.BoundingBoxes)})
		}
	}

	if treeName == "all" || treeName == "blas" {
		blasIndex := ctx.Int("blas")
		for index, root := range sc.BlasRoots {
			if blasIndex >= 0 && index != blasIndex {
				continue
			}
			trees = append(trees, debugTree{fmt.Sprintf("blas-%d", index), visualize.BvhWalker(sc.BvhNodeList, root)})
		}
		if blasIndex >= len(sc.BlasRoots) {
			return nil, fmt.Errorf("blas index %d out of range; scene contains %d BLAS", blasIndex, len(sc.BlasRoots))
		}
	}

	if treeName == "all" || treeName == "tlas" {
		if len(sc.TlasNodeList) != 0 {
			trees = append(trees, debugTree{"tlas", visualize.TlasWalker(sc.TlasNodeList)})
		}
	}

	switch treeName {
	case "all", "median", "blas", "tlas":
	default:
		return nil, fmt.Errorf("unknown tree %q; supported values: all, median, blas, tlas", treeName)
	}

	if len(trees) == 0 {
		return nil, fmt.Errorf("scene contains no %q acceleration structures (mode: %s)", treeName, sc.Mode)
	}

	for index := range trees {
		trees[index].walk = visualize.LimitDepth(trees[index].walk, maxDepth)
	}
	return trees, nil
}

func loadCompiledScene(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing compiled scene file")
	}
	return reader.ReadScene(ctx.Args().First())
}

// Dump the nodes of the selected acceleration structures.
func DumpTrees(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	trees, err := selectTrees(ctx, sc)
	if err != nil {
		return err
	}

	for _, tree := range trees {
		var buf bytes.Buffer
		visualize.DumpTable(&buf, tree.walk)
		logger.Noticef("%s:\n%s", tree.name, buf.String())
	}
	return nil
}

// Export the selected acceleration structures as a binary glTF file.
func ExportGLTF(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	trees, err := selectTrees(ctx, sc)
	if err != nil {
		return err
	}

	sets := make([]visualize.BoxSet, len(trees))
	for index, tree := range trees {
		sets[index] = visualize.BoxSet{
			Name:  tree.name,
			Boxes: visualize.CollectBoxes(tree.walk),
		}
	}

	outFile := ctx.String("out")
	if outFile == "" {
		sceneFile := ctx.Args().First()
		outFile = strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".glb"
	}

	if err = visualize.ExportGLTF(outFile, sets...); err != nil {
		return err
	}
	logger.Noticef("exported %d tree(s) to %s", len(sets), outFile)
	return nil
}
