package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/asset/scene/reader"
	"github.com/achilleasa/accel/asset/scene/writer"
	"github.com/urfave/cli"
)

// Build compiler options from the command flags.
func compilerOptions(ctx *cli.Context) (compiler.Options, error) {
	mode, err := scene.ParseBvhMode(ctx.String("mode"))
	if err != nil {
		return compiler.Options{}, err
	}

	seed := ctx.Int64("seed")
	if !ctx.IsSet("seed") {
		seed = time.Now().UnixNano()
	}
	logger.Infof("using median split axis seed %d", seed)

	return compiler.Options{
		Mode: mode,
		MedianSplit: bvh.MedianSplitOptions{
			SelectAxis:         bvh.RandomAxis(rand.New(rand.NewSource(seed))),
			CollapseSingletons: ctx.Bool("collapse-singletons"),
		},
	}, nil
}

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file(s)")
	}
	if ctx.IsSet("out") && ctx.NArg() != 1 {
		return errors.New("the out flag can only be used when compiling a single scene")
	}

	opts, err := compilerOptions(ctx)
	if err != nil {
		return err
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		rawScene, err := reader.ReadRawScene(sceneFile)
		if err != nil {
			return err
		}

		sc, err := compiler.Compile(rawScene, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", sceneFile, err)
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		outFile := ctx.String("out")
		if outFile == "" {
			outFile = strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".accl"
		}
		err = writer.WriteScene(sc, outFile)
		if err != nil {
			return err
		}
		logger.Noticef("wrote compiled scene to %s", outFile)
	}

	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene file")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())

	return nil
}
