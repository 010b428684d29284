/*
Package restable builds the paired resource table and payload data files
that cooked descriptors reference by slot. Builders append blobs and hand
out slots local to the current build; merging with the bytes of a prior
build re-bases the fresh entries so slots bound by earlier cooks never
move. Slot 0 of every table is reserved and all zero.
*/
package restable

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrMalformedTable reports prior table bytes whose length is not a
	// whole number of entries.
	ErrMalformedTable = errors.New("resource table bytes are malformed")
	// ErrBlobTooLarge reports a payload that exceeds the 32 bit entry
	// size field.
	ErrBlobTooLarge = errors.New("resource blob exceeds entry size field")
)

/**
 * @brief The table and payload data bytes of one resource table file pair.
 */
type TablePair struct {
	Table []byte
	Data  []byte
}

/**
 * @brief Output of merging a fresh build into a prior one. Slots handed
 * out by the fresh builder are remapped as SlotBase + local - 1; on a
 * first build SlotBase is 1 and slots are unchanged.
 */
type MergeResult struct {
	Table []byte
	Data  []byte
	/** @brief Slot of the first fresh entry in the merged table. */
	SlotBase uint32
}

/**
 * @brief Maps a slot handed out by the fresh builder to its slot in the
 * merged table. The unbound slot 0 maps to itself.
 */
func (r *MergeResult) FinalSlot(local uint32) uint32 {
	if local == 0 {
		return 0
	}
	return r.SlotBase + local - 1
}

func alignUp(n, alignment int) int {
	rem := n % alignment
	if rem == 0 {
		return n
	}
	return n + alignment - rem
}

// mergeTables appends the fresh entries after the prior ones, dropping the
// fresh reserved slot and re-basing every fresh data offset past the prior
// data. Both table formats keep their data offset as a little-endian u64
// at the start of each entry, so the merge is format-agnostic apart from
// the entry size and the payload base alignment.
func mergeTables(prior, fresh TablePair, entrySize, baseAlignment int) (*MergeResult, error) {
	priorTable, priorData := prior.Table, prior.Data
	if len(priorTable) == 0 {
		// First build: behave as if the prior table held only the
		// reserved slot, which makes the merged output byte identical
		// to the fresh one.
		priorTable = make([]byte, entrySize)
		priorData = nil
	}
	if len(priorTable)%entrySize != 0 {
		return nil, fmt.Errorf("prior table is %d bytes, not a multiple of %d: %w", len(priorTable), entrySize, ErrMalformedTable)
	}
	if len(fresh.Table) < entrySize || len(fresh.Table)%entrySize != 0 {
		panic(fmt.Sprintf("restable: fresh table is %d bytes with entry size %d", len(fresh.Table), entrySize))
	}

	slotBase := len(priorTable) / entrySize
	dataBase := alignUp(len(priorData), baseAlignment)

	table := make([]byte, 0, len(priorTable)+len(fresh.Table)-entrySize)
	table = append(table, priorTable...)
	for pos := entrySize; pos < len(fresh.Table); pos += entrySize {
		entry := make([]byte, entrySize)
		copy(entry, fresh.Table[pos:pos+entrySize])
		offset := binary.LittleEndian.Uint64(entry[:8])
		binary.LittleEndian.PutUint64(entry[:8], offset+uint64(dataBase))
		table = append(table, entry...)
	}

	data := make([]byte, 0, dataBase+len(fresh.Data))
	data = append(data, priorData...)
	if len(fresh.Table) > entrySize {
		// Padding belongs to the appended region; a merge with nothing
		// to append must leave the prior bytes alone.
		data = append(data, make([]byte, dataBase-len(priorData))...)
		data = append(data, fresh.Data...)
	}

	return &MergeResult{Table: table, Data: data, SlotBase: uint32(slotBase)}, nil
}
