package cmd

import "github.com/urfave/cli"

// Build the accel command line application.
func NewApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	treeFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "tree, t",
			Value: "all",
			Usage: "the tree to inspect: all, median, blas or tlas",
		},
		cli.IntFlag{
			Name:  "blas",
			Value: -1,
			Usage: "only inspect the BLAS of this mesh instance",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: -1,
			Usage: "skip nodes deeper than this value",
		},
	}

	app := cli.NewApp()
	app.Name = "accel"
	app.Usage = "build BVH acceleration structures for ray tracing scenes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a yaml scene definition, build the BVH trees used to accelerate
ray intersection tests and package them in a GPU-friendly format.

The optimized scene data is written to a compressed .accl file which can be
inspected with the info, dump and export-gltf commands.`,
			ArgsUsage: "scene_file1.yaml scene_file2.yaml ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Value: "two-level",
					Usage: "bvh layout: disabled, all-in-one or two-level",
				},
				cli.Int64Flag{
					Name:  "seed",
					Usage: "seed for the median split axis selection (default: current time)",
				},
				cli.BoolFlag{
					Name:  "collapse-singletons",
					Usage: "emit a single leaf for one-element median split partitions",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output file; defaults to the scene file with an .accl extension",
				},
			},
			Action: CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display compiled scene statistics",
			ArgsUsage: "scene_file.accl",
			Action:    ShowSceneInfo,
		},
		{
			Name:      "dump",
			Usage:     "print the nodes of the acceleration structures in a compiled scene",
			ArgsUsage: "scene_file.accl",
			Flags:     treeFlags,
			Action:    DumpTrees,
		},
		{
			Name:  "export-gltf",
			Usage: "export the acceleration structures of a compiled scene as glTF line boxes",
			Description: `
Export the bounding boxes of the selected trees to a binary glTF file. Each
tree becomes a separate mesh; leaves are highlighted and internal nodes are
colored by the root subtree they belong to.`,
			ArgsUsage: "scene_file.accl",
			Flags: append(treeFlags, cli.StringFlag{
				Name:  "out, o",
				Usage: "output file; defaults to the scene file with a .glb extension",
			}),
			Action: ExportGLTF,
		},
	}

	return app
}
