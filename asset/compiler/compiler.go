package compiler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
)

var (
	ErrEmptyScene = errors.New("scene contains no elements")
)

// Compiler options.
type Options struct {
	// The BVH layout to generate.
	Mode scene.BvhMode

	// Options passed to the median split builder.
	MedianSplit bvh.MedianSplitOptions
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	opts           Options
	logger         log.Logger

	// The offset of each mesh inside the optimized triangle list.
	meshTriOffsets []int32
}

// Compile a scene representation parsed by a scene reader into a GPU-friendly
// optimized scene format.
func Compile(parsedScene *input.Scene, opts Options) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		parsedScene: parsedScene,
		optimizedScene: &scene.Scene{
			Mode: opts.Mode,
		},
		opts:   opts,
		logger: log.New("scene compiler"),
	}

	if len(parsedScene.Objects) == 0 && len(parsedScene.MeshInstances) == 0 {
		return nil, ErrEmptyScene
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene (mode: %s)", opts.Mode)

	var err error
	err = compiler.validate()
	if err != nil {
		return nil, err
	}

	compiler.flattenTriangles()

	switch opts.Mode {
	case scene.BvhDisabled:
		compiler.logger.Warning("BVH generation is disabled; all elements will be tested against each ray")
	case scene.BvhAllInOne:
		err = compiler.partitionElements(parsedScene.ElementBoxes())
		if err == nil {
			_, err = compiler.partitionMeshes()
		}
	case scene.BvhTwoLevel:
		err = compiler.partitionElements(compiler.objectBoxes())
		if err == nil {
			err = compiler.partitionInstances()
		}
	default:
		err = fmt.Errorf("compiler: unsupported bvh mode %s", opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Ensure that all mesh instances point to a valid, non-empty mesh.
func (sc *sceneCompiler) validate() error {
	for index, mi := range sc.parsedScene.MeshInstances {
		if int(mi.MeshIndex) >= len(sc.parsedScene.Meshes) {
			return fmt.Errorf("compiler: mesh instance %d references unknown mesh %d", index, mi.MeshIndex)
		}
		if mesh := sc.parsedScene.Meshes[mi.MeshIndex]; len(mesh.Triangles) == 0 {
			return fmt.Errorf("compiler: mesh %q: %w", mesh.Name, bvh.ErrEmptyInput)
		}
	}
	return nil
}

// Copy the triangles of all meshes into a single list.
func (sc *sceneCompiler) flattenTriangles() {
	totalTriangles := 0
	for _, pm := range sc.parsedScene.Meshes {
		totalTriangles += len(pm.Triangles)
	}

	sc.optimizedScene.TriangleList = make([]scene.Triangle, 0, totalTriangles)
	sc.meshTriOffsets = make([]int32, len(sc.parsedScene.Meshes))
	for index, pm := range sc.parsedScene.Meshes {
		sc.meshTriOffsets[index] = int32(len(sc.optimizedScene.TriangleList))
		sc.optimizedScene.TriangleList = append(sc.optimizedScene.TriangleList, pm.Triangles...)
	}
}

// Collect the bounding boxes of non-mesh objects; meshes are reachable
// through the TLAS in two-level mode.
func (sc *sceneCompiler) objectBoxes() []scene.BoundingBox {
	boxes := sc.parsedScene.ElementBoxes()
	out := boxes[:0]
	for _, box := range boxes {
		if box.Type != scene.ElementMesh {
			out = append(out, box)
		}
	}
	return out
}

// Build a median split BVH over the given element boxes.
func (sc *sceneCompiler) partitionElements(boxes []scene.BoundingBox) error {
	if len(boxes) == 0 {
		sc.logger.Info("no elements to partition with the median split builder")
		return nil
	}

	sc.logger.Infof("building median split BVH tree (%d elements)", len(boxes))
	tree, err := bvh.BuildMedianSplit(boxes, sc.opts.MedianSplit)
	if err != nil {
		return fmt.Errorf("compiler: median split: %w", err)
	}

	sc.optimizedScene.BoundingBoxes = tree.Nodes
	return nil
}

// Build a BLAS for each mesh instance. Builds run in parallel; the
// resulting node lists are concatenated into the optimized scene once all
// of them complete.
func (sc *sceneCompiler) partitionMeshes() ([]*bvh.BLAS, error) {
	instances := sc.parsedScene.MeshInstances
	if len(instances) == 0 {
		return nil, nil
	}

	sc.logger.Infof("building BLAS for %d mesh instances (%d meshes)", len(instances), len(sc.parsedScene.Meshes))
	blasList := make([]*bvh.BLAS, len(instances))
	for index, mi := range instances {
		pm := sc.parsedScene.Meshes[mi.MeshIndex]
		blasList[index] = bvh.NewBLAS(pm.Triangles, pm.Material)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(instances))
	for index := range blasList {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			blas := blasList[index]
			mi := instances[index]
			if err := blas.Build(); err != nil {
				errCh <- fmt.Errorf("compiler: mesh instance %d: %w", index, err)
				return
			}
			if err := blas.SetTransform(mi.Transform); err != nil {
				errCh <- fmt.Errorf("compiler: mesh instance %d: %w", index, err)
			}
		}(index)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}

	sc.optimizedScene.BlasRoots = make([]uint32, len(blasList))
	for index, blas := range blasList {
		nodeOffset := int32(len(sc.optimizedScene.BvhNodeList))
		primOffset := int32(len(sc.optimizedScene.TriangleIndices))
		triOffset := sc.meshTriOffsets[instances[index].MeshIndex]

		sc.optimizedScene.BlasRoots[index] = uint32(nodeOffset)
		for _, node := range blas.Nodes() {
			node.OffsetChildNodes(nodeOffset)
			node.OffsetPrimitives(primOffset)
			sc.optimizedScene.BvhNodeList = append(sc.optimizedScene.BvhNodeList, node)
		}
		for _, triIndex := range blas.TriIndex() {
			sc.optimizedScene.TriangleIndices = append(sc.optimizedScene.TriangleIndices, triOffset+triIndex)
		}

		stats := blas.Stats()
		sc.logger.Debugf(
			"mesh instance %d (%s): %d nodes, %d leafs, depth %d",
			index, blas.Material().Type, stats.Nodes, stats.Leafs, stats.MaxDepth,
		)
	}

	return blasList, nil
}

// Build a BLAS per mesh instance and combine them with a TLAS.
func (sc *sceneCompiler) partitionInstances() error {
	blasList, err := sc.partitionMeshes()
	if err != nil || len(blasList) == 0 {
		return err
	}

	sc.logger.Infof("building TLAS (%d instances)", len(blasList))
	instances := make([]scene.Instance, len(blasList))
	for index, blas := range blasList {
		instances[index] = blas
	}

	tlas, err := bvh.BuildTLAS(instances)
	if err != nil {
		return fmt.Errorf("compiler: tlas: %w", err)
	}

	sc.optimizedScene.TlasNodeList = tlas.Nodes
	return nil
}
