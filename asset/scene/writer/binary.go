package writer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

type binarySceneWriter struct {
	logger log.Logger
	out    io.Writer
}

// Create a new binary scene writer.
func newBinarySceneWriter(out io.Writer) *binarySceneWriter {
	return &binarySceneWriter{
		logger: log.New("binary writer"),
		out:    out,
	}
}

// Write a compiled scene using the compressed sectioned binary format.
func (w *binarySceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef("writing compiled scene")
	start := time.Now()

	bw := bufio.NewWriter(w.out)
	if err := Encode(bw, sc); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writer: %w", err)
	}

	w.logger.Noticef("wrote scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Encode a compiled scene into out.
func Encode(out io.Writer, sc *scene.Scene) error {
	header := []byte(scene.FormatMagic)
	header = append(header, scene.FormatVersion, uint8(sc.Mode))
	if _, err := out.Write(header); err != nil {
		return fmt.Errorf("writer: header: %w", err)
	}

	zw, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("writer: %w", err)
	}

	boxes := make([]scene.BoundingBoxRecord, len(sc.BoundingBoxes))
	for index, box := range sc.BoundingBoxes {
		boxes[index] = scene.NewBoundingBoxRecord(box)
	}

	sections := []struct {
		id    scene.SectionID
		count int
		data  interface{}
	}{
		{scene.SectionBoundingBoxes, len(boxes), boxes},
		{scene.SectionBvhNodes, len(sc.BvhNodeList), sc.BvhNodeList},
		{scene.SectionBlasRoots, len(sc.BlasRoots), sc.BlasRoots},
		{scene.SectionTriangles, len(sc.TriangleList), sc.TriangleList},
		{scene.SectionTriangleIndices, len(sc.TriangleIndices), sc.TriangleIndices},
		{scene.SectionTlasNodes, len(sc.TlasNodeList), sc.TlasNodeList},
	}

	for _, s := range sections {
		if s.count == 0 {
			continue
		}
		if err = writeSection(zw, s.id, s.count, s.data); err != nil {
			zw.Close()
			return err
		}
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("writer: %w", err)
	}
	return nil
}

func writeSection(out io.Writer, id scene.SectionID, count int, data interface{}) error {
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("writer: encoding %s: %w", id, err)
	}

	header := scene.SectionHeader{
		ID:       id,
		Count:    uint32(count),
		Checksum: xxhash.Sum64(payload.Bytes()),
	}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writer: %s header: %w", id, err)
	}
	if _, err := out.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("writer: %s payload: %w", id, err)
	}
	return nil
}
