// Package snapshot stores level data: the small per-world record (seed, spawn,
// clock, viewer position) that lives next to the chunk database.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

const Version = 1

var ErrVersion = errors.New("unsupported level data version")

// Header is written as a JSON line ahead of the gob body so tools can read it
// without decoding the whole file.
type Header struct {
	Version int    `json:"version"`
	World   string `json:"world"`
	Tick    uint64 `json:"tick"`
}

type LevelV1 struct {
	Header Header `json:"header"`

	Seed       int64  `json:"seed"`
	TickRateHz int    `json:"tick_rate_hz"`
	Spawn      [3]int `json:"spawn"`
	Viewer     [3]int `json:"viewer"`
	// Chunks lists the positions loaded at save time.
	Chunks [][3]int `json:"chunks,omitempty"`
}

// FromWorld captures level data for w with the loader anchored at viewer.
func FromWorld(w *world.World, viewer model.BlockPos) LevelV1 {
	cfg := w.Config()
	lv := LevelV1{
		Header: Header{
			Version: Version,
			World:   cfg.Name,
			Tick:    w.Tick(),
		},
		Seed:       cfg.Seed,
		TickRateHz: cfg.TickRateHz,
		Spawn:      w.SpawnPoint().ToArray(),
		Viewer:     viewer.ToArray(),
	}
	for _, p := range w.Chunks().Keys() {
		lv.Chunks = append(lv.Chunks, [3]int{p.X, p.Y, p.Z})
	}
	return lv
}

func (lv LevelV1) ViewerPos() model.BlockPos {
	return model.BlockPos{X: lv.Viewer[0], Y: lv.Viewer[1], Z: lv.Viewer[2]}
}

func WriteLevel(path string, lv LevelV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(lv.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&lv); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func openLevel(path string) (*bufio.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	closeFn := func() {
		dec.Close()
		f.Close()
	}
	return bufio.NewReaderSize(dec, 64*1024), closeFn, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	br, closeFn, err := openLevel(path)
	if err != nil {
		return h, err
	}
	defer closeFn()
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}

func ReadLevel(path string) (LevelV1, error) {
	var lv LevelV1
	br, closeFn, err := openLevel(path)
	if err != nil {
		return lv, err
	}
	defer closeFn()

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return lv, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&lv); err != nil {
		return lv, fmt.Errorf("gob decode: %w", err)
	}
	if lv.Header.Version != Version {
		return lv, fmt.Errorf("%w: %d", ErrVersion, lv.Header.Version)
	}
	return lv, nil
}
