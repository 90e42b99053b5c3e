package scrub

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Ancillary chunks that carry camera, location, authoring or time data.
var droppedPNGChunks = map[string]bool{
	"eXIf": true,
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
}

var errNotPNG = errors.New("not a PNG stream")

const maxPNGChunk = 1<<31 - 1

// filterPNG copies a PNG chunk by chunk, dropping metadata chunks. Chunk
// CRCs are copied unchanged since kept chunks are not modified.
func filterPNG(dst io.Writer, src io.Reader) error {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(src, sig); err != nil {
		return fmt.Errorf("read signature: %w", err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return errNotPNG
	}
	if _, err := dst.Write(sig); err != nil {
		return err
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(src, header[:]); err != nil {
			return fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		if length > maxPNGChunk {
			return fmt.Errorf("chunk length %d exceeds limit", length)
		}
		kind := string(header[4:8])
		rest := int64(length) + 4 // data + crc

		if droppedPNGChunks[kind] {
			if _, err := io.CopyN(io.Discard, src, rest); err != nil {
				return fmt.Errorf("skip chunk %s: %w", kind, err)
			}
			continue
		}
		if _, err := dst.Write(header[:]); err != nil {
			return err
		}
		if _, err := io.CopyN(dst, src, rest); err != nil {
			return fmt.Errorf("copy chunk %s: %w", kind, err)
		}
		if kind == "IEND" {
			return nil
		}
	}
}
