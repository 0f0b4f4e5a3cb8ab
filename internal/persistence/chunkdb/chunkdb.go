// Package chunkdb persists chunks and grown structures in a LevelDB store.
// Values are NBT records compressed with zstd.
package chunkdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Tnze/go-mc/nbt"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/storage"
	"github.com/df-mc/goleveldb/leveldb/util"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

const (
	prefixChunk     = 'c'
	prefixStructure = 's'
)

type DB struct {
	ldb *leveldb.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) the database directory at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open chunkdb %s: %w", path, err)
	}
	return wrap(ldb)
}

// OpenStorage opens a database over an arbitrary storage, e.g. storage.NewMemStorage().
func OpenStorage(stor storage.Storage) (*DB, error) {
	ldb, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("open chunkdb: %w", err)
	}
	return wrap(ldb)
}

func wrap(ldb *leveldb.DB) (*DB, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = ldb.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = ldb.Close()
		return nil, err
	}
	return &DB{ldb: ldb, enc: enc, dec: dec}, nil
}

func (d *DB) Close() error {
	d.dec.Close()
	_ = d.enc.Close()
	return d.ldb.Close()
}

func chunkKey(p model.ChunkPos) []byte {
	k := make([]byte, 13)
	k[0] = prefixChunk
	binary.BigEndian.PutUint32(k[1:], uint32(int32(p.X)))
	binary.BigEndian.PutUint32(k[5:], uint32(int32(p.Y)))
	binary.BigEndian.PutUint32(k[9:], uint32(int32(p.Z)))
	return k
}

func parseChunkKey(k []byte) (model.ChunkPos, bool) {
	if len(k) != 13 || k[0] != prefixChunk {
		return model.ChunkPos{}, false
	}
	return model.ChunkPos{
		X: int(int32(binary.BigEndian.Uint32(k[1:]))),
		Y: int(int32(binary.BigEndian.Uint32(k[5:]))),
		Z: int(int32(binary.BigEndian.Uint32(k[9:]))),
	}, true
}

func structureKey(id uuid.UUID) []byte {
	return append([]byte{prefixStructure}, id[:]...)
}

func (d *DB) put(key []byte, v any) error {
	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(v, ""); err != nil {
		return err
	}
	return d.ldb.Put(key, d.enc.EncodeAll(buf.Bytes(), nil), nil)
}

// get reports ok=false when key is absent.
func (d *DB) get(key []byte, v any) (bool, error) {
	raw, err := d.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	data, err := d.dec.DecodeAll(raw, nil)
	if err != nil {
		return false, fmt.Errorf("decompress: %w", err)
	}
	if _, err := nbt.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return false, fmt.Errorf("decode nbt: %w", err)
	}
	return true, nil
}

func (d *DB) LoadChunk(pos model.ChunkPos) (*store.Chunk, bool, error) {
	var rec store.ChunkRecord
	ok, err := d.get(chunkKey(pos), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	c, err := store.Import(rec)
	if err != nil {
		return nil, false, fmt.Errorf("chunk %v: %w", pos, err)
	}
	return c, true, nil
}

func (d *DB) StoreChunk(c *store.Chunk) error {
	if err := d.put(chunkKey(c.Pos), store.Export(c)); err != nil {
		return fmt.Errorf("store chunk %v: %w", c.Pos, err)
	}
	return nil
}

// Chunks lists every persisted chunk position in key order.
func (d *DB) Chunks() ([]model.ChunkPos, error) {
	it := d.ldb.NewIterator(util.BytesPrefix([]byte{prefixChunk}), nil)
	defer it.Release()
	var out []model.ChunkPos
	for it.Next() {
		if p, ok := parseChunkKey(it.Key()); ok {
			out = append(out, p)
		}
	}
	return out, it.Error()
}

func (d *DB) LoadStructure(id uuid.UUID) (*structure.Structure, bool, error) {
	var rec structure.Record
	ok, err := d.get(structureKey(id), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	s, err := structure.Import(rec)
	if err != nil {
		return nil, false, fmt.Errorf("structure %s: %w", id, err)
	}
	return s, true, nil
}

func (d *DB) StoreStructure(s *structure.Structure) error {
	if err := d.put(structureKey(s.ID), structure.Export(s)); err != nil {
		return fmt.Errorf("store structure %s: %w", s.ID, err)
	}
	return nil
}

var (
	_ store.Provider  = (*DB)(nil)
	_ structure.Store = (*DB)(nil)
)
