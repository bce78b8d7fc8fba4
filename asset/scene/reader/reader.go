package reader

import (
	"fmt"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
)

// The Reader interface is implemented by compiled scene readers.
type Reader interface {
	// Read compiled scene from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// The RawReader interface is implemented by readers for scene definitions
// that need to be compiled before use.
type RawReader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*input.Scene, error)
}

// Read compiled scene from file.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var reader Reader
	switch res.Ext() {
	case ".accl":
		reader = newBinarySceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}

// Read scene definition from file. The reader is selected based on the
// file extension.
func ReadRawScene(filename string) (*input.Scene, error) {
	res, err := asset.NewResource(filename)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var reader RawReader
	switch res.Ext() {
	case ".yaml", ".yml":
		reader = newYamlReader()
	default:
		return nil, fmt.Errorf("readRawScene: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}
