package reader

import (
	"fmt"
	"strconv"
	"time"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
	"gopkg.in/yaml.v3"
)

type yamlTransform struct {
	Translate *types.Vec3 `yaml:"translate"`
	Rotate    *types.Vec3 `yaml:"rotate"`
	Scale     *types.Vec3 `yaml:"scale"`
}

// Build a TRS matrix; rotation angles are pitch, yaw and roll in degrees.
func (t yamlTransform) matrix() types.Mat4 {
	translation := types.Vec3{}
	rotation := types.QuatIdent()
	scale := types.Vec3{1, 1, 1}
	if t.Translate != nil {
		translation = *t.Translate
	}
	if t.Rotate != nil {
		rotation = types.QuatFromEuler(t.Rotate[0], t.Rotate[1], t.Rotate[2])
	}
	if t.Scale != nil {
		scale = *t.Scale
	}
	return types.TRS(translation, rotation, scale)
}

type yamlObject struct {
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type"`
	Center *types.Vec3 `yaml:"center"`
	Radius float32     `yaml:"radius"`
	Min    *types.Vec3 `yaml:"min"`
	Max    *types.Vec3 `yaml:"max"`

	yamlTransform `yaml:",inline"`
}

type yamlMaterial struct {
	Type             string      `yaml:"type"`
	Color            *types.Vec4 `yaml:"color"`
	Fuzz             float32     `yaml:"fuzz"`
	RefIdx           float32     `yaml:"refIdx"`
	EmissionColor    *types.Vec4 `yaml:"emissionColor"`
	EmissionStrength float32     `yaml:"emissionStrength"`
}

type yamlMesh struct {
	Name      string          `yaml:"name"`
	Primitive string          `yaml:"primitive"`
	Size      float32         `yaml:"size"`
	Triangles [][3]types.Vec3 `yaml:"triangles"`
	Material  yamlMaterial    `yaml:"material"`
}

type yamlInstance struct {
	Mesh string `yaml:"mesh"`

	yamlTransform `yaml:",inline"`
}

type yamlSceneFile struct {
	Objects   []yamlObject   `yaml:"objects"`
	Meshes    []yamlMesh     `yaml:"meshes"`
	Instances []yamlInstance `yaml:"instances"`
}

type yamlSceneReader struct {
	logger log.Logger
}

// Create a new yaml scene reader.
func newYamlReader() *yamlSceneReader {
	return &yamlSceneReader{
		logger: log.New("yaml scene reader"),
	}
}

// Read scene definition.
func (r *yamlSceneReader) Read(sceneRes *asset.Resource) (*input.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	var def yamlSceneFile
	dec := yaml.NewDecoder(sceneRes)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("yaml reader: %s: %w", sceneRes.Path(), err)
	}

	rawScene := input.NewScene()
	for index, objDef := range def.Objects {
		obj, err := parseYamlObject(objDef)
		if err != nil {
			return nil, fmt.Errorf("yaml reader: %s: object %d: %w", sceneRes.Path(), index, err)
		}
		rawScene.Objects = append(rawScene.Objects, obj)
	}

	meshIndex := make(map[string]uint32, len(def.Meshes))
	for index, meshDef := range def.Meshes {
		mesh, err := parseYamlMesh(meshDef)
		if err != nil {
			return nil, fmt.Errorf("yaml reader: %s: mesh %d: %w", sceneRes.Path(), index, err)
		}
		if _, exists := meshIndex[mesh.Name]; exists {
			return nil, fmt.Errorf("yaml reader: %s: mesh %q already defined", sceneRes.Path(), mesh.Name)
		}
		meshIndex[mesh.Name] = uint32(len(rawScene.Meshes))
		rawScene.Meshes = append(rawScene.Meshes, mesh)
	}

	for index, instDef := range def.Instances {
		mIndex, exists := meshIndex[instDef.Mesh]
		if !exists {
			return nil, fmt.Errorf("yaml reader: %s: instance %d: unknown mesh %q", sceneRes.Path(), index, instDef.Mesh)
		}
		rawScene.MeshInstances = append(rawScene.MeshInstances, &input.MeshInstance{
			MeshIndex: mIndex,
			Transform: instDef.matrix(),
		})
	}

	r.logger.Noticef(
		"parsed scene in %d ms (%d objects, %d meshes, %d mesh instances)",
		time.Since(start).Nanoseconds()/1e6,
		len(rawScene.Objects), len(rawScene.Meshes), len(rawScene.MeshInstances),
	)
	return rawScene, nil
}

func parseYamlObject(def yamlObject) (*input.Object, error) {
	elemType, err := scene.ParseElementType(def.Type)
	if err != nil {
		return nil, err
	}

	var obj *input.Object
	switch elemType {
	case scene.ElementSphere:
		if def.Center == nil || def.Radius <= 0 {
			return nil, fmt.Errorf("sphere requires a center and a positive radius")
		}
		obj = input.NewSphere(def.Name, *def.Center, def.Radius)
	case scene.ElementBox, scene.ElementFogBox, scene.ElementRect:
		if def.Min == nil || def.Max == nil {
			return nil, fmt.Errorf("%s requires min and max extents", elemType)
		}
		obj = input.NewBoxObject(def.Name, elemType, *def.Min, *def.Max)
	default:
		return nil, fmt.Errorf("unsupported object type %q; meshes must be defined as mesh instances", def.Type)
	}

	obj.Transform = def.matrix()
	return obj, nil
}

func parseYamlMesh(def yamlMesh) (*input.Mesh, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("missing mesh name")
	}

	mesh := input.NewMesh(def.Name)
	mat, err := parseYamlMaterial(def.Material)
	if err != nil {
		return nil, err
	}
	mesh.Material = mat

	size := def.Size
	if size == 0 {
		size = 1
	}

	switch def.Primitive {
	case "":
	case "cube":
		mesh.AddTriangles(input.CubeTriangles(size)...)
	case "quad":
		mesh.AddTriangles(input.QuadTriangles(size)...)
	default:
		return nil, fmt.Errorf("unsupported primitive %q", def.Primitive)
	}

	var zero types.Vec3
	for _, tri := range def.Triangles {
		mesh.AddTriangles(scene.NewTriangle(tri[0], tri[1], tri[2], zero, zero, zero))
	}

	if len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("mesh %q contains no triangles", def.Name)
	}
	return mesh, nil
}

func parseYamlMaterial(def yamlMaterial) (scene.Material, error) {
	mat := scene.Material{
		Color:            types.XYZW(0.7, 0.7, 0.7, 1),
		Fuzz:             def.Fuzz,
		RefIdx:           def.RefIdx,
		EmissionColor:    types.XYZW(0, 0, 0, 1),
		EmissionStrength: def.EmissionStrength,
	}
	if def.Color != nil {
		mat.Color = *def.Color
	}
	if def.EmissionColor != nil {
		mat.EmissionColor = *def.EmissionColor
	}

	if def.Type != "" {
		matType, err := scene.ParseMaterialType(def.Type)
		if err != nil {
			numType, numErr := strconv.ParseUint(def.Type, 10, 32)
			if numErr != nil || numType > uint64(scene.MaterialDielectric) {
				return mat, err
			}
			matType = scene.MaterialType(numType)
		}
		mat.Type = matType
	}
	return mat, nil
}
