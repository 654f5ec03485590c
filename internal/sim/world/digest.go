package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"voxelforge.ai/internal/sim/machine/record"
)

// stateDigest hashes the tick, loaded chunks, machine full saves and levers.
// Two worlds fed the same commands produce the same digest.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, &tmp, nowTick)
	writeU64(h, &tmp, uint64(w.cfg.Tuning.Seed))

	for _, k := range w.chunks.LoadedChunkKeys() {
		ch := w.chunks.Chunks[k]
		writeU64(h, &tmp, uint64(int64(k.CX)))
		writeU64(h, &tmp, uint64(int64(k.CZ)))
		d := ch.Digest()
		h.Write(d[:])
	}

	for _, p := range w.machinePositions() {
		m := w.machines[p]
		h.Write([]byte(m.Kind()))
		// Record keys marshal in sorted order.
		raw, err := m.Save(record.FullSave).Marshal()
		if err == nil {
			h.Write(raw)
		}
	}

	for _, p := range sortedLeverPositions(w.levers) {
		writeU64(h, &tmp, uint64(int64(p.X)))
		writeU64(h, &tmp, uint64(int64(p.Y)))
		writeU64(h, &tmp, uint64(int64(p.Z)))
		if w.levers[p] {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}
