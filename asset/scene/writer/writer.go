package writer

import (
	"fmt"
	"os"

	"github.com/achilleasa/accel/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write scene to binary format.
func WriteScene(sc *scene.Scene, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("writer: %w", err)
	}

	writer := newBinarySceneWriter(f)
	err = writer.Write(sc)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("writer: %w", closeErr)
	}
	return err
}
