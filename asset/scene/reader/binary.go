package reader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrInvalidFormat    = errors.New("not a compiled scene file")
	ErrChecksumMismatch = errors.New("section checksum mismatch")
)

const (
	// The largest section payload the decoder accepts.
	MaxSectionSize = 1 << 30

	// Memory limit for the zstd decoder window.
	maxDecoderMemory = 1 << 28
)

type binarySceneReader struct {
	logger log.Logger
}

// Create a new binary scene reader.
func newBinarySceneReader() *binarySceneReader {
	return &binarySceneReader{
		logger: log.New("binary reader"),
	}
}

// Read compiled scene.
func (p *binarySceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	sc, err := Decode(bufio.NewReader(sceneRes))
	if err != nil {
		return nil, fmt.Errorf("binary reader: %s: %w", sceneRes.Path(), err)
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

// Decode a compiled scene. Section checksums are verified before any
// section payload is decoded.
func Decode(in io.Reader) (*scene.Scene, error) {
	header := make([]byte, len(scene.FormatMagic)+2)
	if _, err := io.ReadFull(in, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if string(header[:len(scene.FormatMagic)]) != scene.FormatMagic {
		return nil, ErrInvalidFormat
	}
	if version := header[len(scene.FormatMagic)]; version != scene.FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, version)
	}

	sc := &scene.Scene{
		Mode: scene.BvhMode(header[len(scene.FormatMagic)+1]),
	}

	zr, err := zstd.NewReader(in, zstd.WithDecoderMaxMemory(maxDecoderMemory))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	seen := make(map[scene.SectionID]bool)
	for {
		var sh scene.SectionHeader
		err = binary.Read(zr, binary.LittleEndian, &sh)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading section header: %w", err)
		}

		if seen[sh.ID] {
			return nil, fmt.Errorf("%w: duplicate %s section", ErrInvalidFormat, sh.ID)
		}
		seen[sh.ID] = true

		recordSize, err := sh.ID.RecordSize()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}

		size := uint64(sh.Count) * uint64(recordSize)
		if size > MaxSectionSize {
			return nil, fmt.Errorf("%w: %s section size %d exceeds %d bytes", ErrInvalidFormat, sh.ID, size, MaxSectionSize)
		}

		// Only allocate as much as the stream actually holds.
		var payload bytes.Buffer
		_, err = io.CopyN(&payload, zr, int64(size))
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated %s section", ErrInvalidFormat, sh.ID)
		} else if err != nil {
			return nil, fmt.Errorf("reading %s: %w", sh.ID, err)
		}
		if xxhash.Sum64(payload.Bytes()) != sh.Checksum {
			return nil, fmt.Errorf("%s: %w", sh.ID, ErrChecksumMismatch)
		}

		if err = decodeSection(sc, sh, &payload); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", sh.ID, err)
		}
	}

	return sc, nil
}

func decodeSection(sc *scene.Scene, sh scene.SectionHeader, payload io.Reader) error {
	var target interface{}
	switch sh.ID {
	case scene.SectionBoundingBoxes:
		records := make([]scene.BoundingBoxRecord, sh.Count)
		if err := binary.Read(payload, binary.LittleEndian, records); err != nil {
			return err
		}
		sc.BoundingBoxes = make([]scene.BoundingBox, sh.Count)
		for index, rec := range records {
			sc.BoundingBoxes[index] = rec.BoundingBox()
		}
		return nil
	case scene.SectionBvhNodes:
		sc.BvhNodeList = make([]scene.BvhNode, sh.Count)
		target = sc.BvhNodeList
	case scene.SectionBlasRoots:
		sc.BlasRoots = make([]uint32, sh.Count)
		target = sc.BlasRoots
	case scene.SectionTriangles:
		sc.TriangleList = make([]scene.Triangle, sh.Count)
		target = sc.TriangleList
	case scene.SectionTriangleIndices:
		sc.TriangleIndices = make([]int32, sh.Count)
		target = sc.TriangleIndices
	case scene.SectionTlasNodes:
		sc.TlasNodeList = make([]scene.TlasNode, sh.Count)
		target = sc.TlasNodeList
	}

	return binary.Read(payload, binary.LittleEndian, target)
}
