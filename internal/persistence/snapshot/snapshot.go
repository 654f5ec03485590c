package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed         int64 `json:"seed"`
	TickRate     int   `json:"tick_rate_hz"`
	Height       int   `json:"height"`
	BoundaryR    int   `json:"boundary_r"`
	SyncInterval int   `json:"sync_interval_ticks"`

	// BlockPaletteDigest ties chunk palette ids to the catalog they were
	// written with.
	BlockPaletteDigest string `json:"block_palette_digest"`

	Chunks   []ChunkV1   `json:"chunks"`
	Machines []MachineV1 `json:"machines"`
	Levers   []LeverV1   `json:"levers,omitempty"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Height int      `json:"height"`
	Blocks []uint16 `json:"blocks"`
}

// MachineV1 stores a machine's full-save record as JSON.
type MachineV1 struct {
	Kind   string `json:"kind"`
	Pos    [3]int `json:"pos"`
	Record []byte `json:"record"`
}

type LeverV1 struct {
	Pos [3]int `json:"pos"`
	On  bool   `json:"on"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return eris.Wrap(err, "zstd writer")
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return eris.Wrap(err, "write header")
	}
	if err := bw.WriteByte('\n'); err != nil {
		return eris.Wrap(err, "write header")
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return eris.Wrap(err, "gob encode")
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "flush")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "zstd close")
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, eris.Wrap(err, "zstd reader")
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is duplicated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, eris.Wrap(err, "read header")
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, eris.Wrap(err, "gob decode")
	}
	if snap.Header.Version != Version {
		return snap, eris.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader returns only the JSON header line, for tools that list
// snapshots without decoding them.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, eris.Wrap(err, "zstd reader")
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, eris.Wrap(err, "read header")
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, eris.Wrap(err, "decode header")
	}
	return h, nil
}
