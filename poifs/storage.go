// Developer: Ali Naqvi
//
// This program or package and any associated files are licensed under the
// Apache License, Version 2.0 (the "License"); you may not use these files
// except in compliance with the License. You can get a copy of the License
// at: http://www.apache.org/licenses/LICENSE-2.0.
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package poifs

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BlockWritable is anything laid out on disk in whole big blocks.
type BlockWritable interface {
	WriteBlocks(w io.Writer) error
}

// BATManaged is a structure which needs its own run of sectors in the BAT.
type BATManaged interface {
	CountBlocks() int
	SetStartBlock(index int)
}

// rawDataBlockList holds every big block following the header, plus the
// BAT once it has been loaded.
type rawDataBlockList struct {
	bigBlockSize BigBlockSize
	blocks       [][]byte
	fat          []int
	log          *zap.Logger
}

func RawDataBlockList(r io.Reader, bigBlockSize BigBlockSize, log *zap.Logger) (*rawDataBlockList, error) {
	raw := &rawDataBlockList{bigBlockSize: bigBlockSize, log: log}
	for {
		block := make([]byte, bigBlockSize.Size)
		count, err := io.ReadFull(r, block)
		if count > 0 {
			if count < len(block) {
				log.Warn("unable to read entire block, document might have been truncated",
					zap.Int("read", count), zap.Int("expected", len(block)))
			}
			raw.blocks = append(raw.blocks, block)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read data block")
		}
	}
	return raw, nil
}

func (raw *rawDataBlockList) BlockCount() int {
	return len(raw.blocks)
}

func (raw *rawDataBlockList) block(index int) ([]byte, error) {
	if index < 0 || index >= len(raw.blocks) {
		return nil, errors.Wrapf(ErrCorruptChain,
			"block %d requested, file contains %d blocks", index, len(raw.blocks))
	}
	return raw.blocks[index], nil
}

// loadBAT collects the BAT sectors named by the header and its XBAT chain
// and flattens them into the allocation table.
func (raw *rawDataBlockList) loadBAT(hb *HeaderBlock) error {
	blockCount := hb.BATCount()
	indices := make([]int, 0, blockCount)
	for i, next := range hb.BATArray() {
		if next < 0 || next >= raw.BlockCount() {
			return errors.Wrapf(ErrCorruptChain, "your file contains %d sectors, "+
				"but the initial DIFAT array at index %d referenced block # %d",
				raw.BlockCount()+1, i, next)
		}
		indices = append(indices, next)
	}

	if remaining := blockCount - len(indices); remaining > 0 {
		if hb.XBATIndex() < 0 {
			return errors.Wrap(ErrCorruptChain,
				"BAT count exceeds limit, yet XBAT index indicates no valid entries")
		}

		perBlock := raw.bigBlockSize.XBATEntriesPerBlock()
		seen := make(map[int]bool)
		chain := hb.XBATIndex()
		for j := 0; j < hb.XBATCount() && remaining > 0; j++ {
			if seen[chain] {
				return errors.Wrapf(ErrCorruptChain, "XBAT block %d referenced twice", chain)
			}
			seen[chain] = true

			data, err := raw.block(chain)
			if err != nil {
				return err
			}
			limit := remaining
			if limit > perBlock {
				limit = perBlock
			}
			for k := 0; k < limit; k++ {
				next := getInt(data, k*IntSize)
				if next < 0 || next >= raw.BlockCount() {
					return errors.Wrapf(ErrCorruptChain, "XBAT block %d referenced block # %d", chain, next)
				}
				indices = append(indices, next)
			}
			remaining -= limit
			chain = getInt(data, raw.bigBlockSize.NextXBATChainOffset())
			if chain == EndOfChain {
				break
			}
		}
	}
	if len(indices) != blockCount {
		return errors.Wrapf(ErrCorruptChain, "could not find all blocks, %d of %d BAT blocks located",
			len(indices), blockCount)
	}

	perBlock := raw.bigBlockSize.BATEntriesPerBlock()
	raw.fat = make([]int, 0, blockCount*perBlock)
	for _, index := range indices {
		data := raw.blocks[index]
		for k := 0; k < perBlock; k++ {
			raw.fat = append(raw.fat, getInt(data, k*IntSize))
		}
	}
	return nil
}

// fetch returns the concatenated contents of the chain starting at startBlock.
func (raw *rawDataBlockList) fetch(startBlock int) ([]byte, error) {
	if raw.fat == nil {
		return nil, errors.New("improperly initialized list: no block allocation table provided")
	}
	indices, err := followChain(raw.fat, startBlock, raw.BlockCount(), raw.log)
	if err != nil {
		return nil, err
	}
	res := make([]byte, 0, len(indices)*raw.bigBlockSize.Size)
	for _, index := range indices {
		res = append(res, raw.blocks[index]...)
	}
	return res, nil
}

// followChain walks an allocation table from start and returns the visited
// sector numbers in order.
func followChain(fat []int, start, blockCount int, log *zap.Logger) ([]int, error) {
	var res []int
	seen := make(map[int]bool)
	current := start
	for current != EndOfChain {
		if current == UnusedBlock {
			log.Warn("chain terminated by a free sector", zap.Int("start", start))
			break
		}
		if current < 0 || current >= blockCount || current >= len(fat) {
			return nil, errors.Wrapf(ErrCorruptChain, "chain from %d points at block %d", start, current)
		}
		if seen[current] {
			return nil, errors.Wrapf(ErrCorruptChain,
				"block %d already visited, does the file have circular references?", current)
		}
		seen[current] = true
		res = append(res, current)
		current = fat[current]
	}
	return res, nil
}

// smallBlockList is the mini stream together with its allocation table.
type smallBlockList struct {
	data []byte
	fat  []int
	log  *zap.Logger
}

func GetSmallDocumentBlocks(blockList *rawDataBlockList, root *Property, sbatStart int) (*smallBlockList, error) {
	ministream, err := blockList.fetch(root.StartBlock())
	if err != nil {
		return nil, errors.Wrap(err, "read mini stream")
	}
	if root.Size() < len(ministream) {
		ministream = ministream[:root.Size()]
	}

	sbat, err := blockList.fetch(sbatStart)
	if err != nil {
		return nil, errors.Wrap(err, "read small block allocation table")
	}
	fat := make([]int, len(sbat)/IntSize)
	for i := range fat {
		fat[i] = getInt(sbat, i*IntSize)
	}
	return &smallBlockList{data: ministream, fat: fat, log: blockList.log}, nil
}

func (s *smallBlockList) fetch(startBlock, size int) ([]byte, error) {
	indices, err := followChain(s.fat, startBlock, len(s.data)/SmallBlockSize, s.log)
	if err != nil {
		return nil, err
	}
	res := make([]byte, 0, len(indices)*SmallBlockSize)
	for _, index := range indices {
		off := index * SmallBlockSize
		res = append(res, s.data[off:off+SmallBlockSize]...)
	}
	if len(res) < size {
		return nil, errors.Wrapf(ErrCorruptChain,
			"small block chain from %d holds %d bytes, %d expected", startBlock, len(res), size)
	}
	return res[:size], nil
}

type BATBlock struct {
	bigBlockSize BigBlockSize
	values       []int
}

// NewBATBlock creates a single instance initialized with default values.
func NewBATBlock(bigBlockSize BigBlockSize) *BATBlock {
	bb := &BATBlock{
		bigBlockSize: bigBlockSize,
		values:       make([]int, bigBlockSize.BATEntriesPerBlock()),
	}
	for i := range bb.values {
		bb.values[i] = UnusedBlock
	}
	return bb
}

// BATBlockFromBytes reads one serialized BAT or XBAT sector.
func BATBlockFromBytes(bigBlockSize BigBlockSize, data []byte) *BATBlock {
	bb := NewBATBlock(bigBlockSize)
	for i := range bb.values {
		if (i+1)*IntSize > len(data) {
			break
		}
		bb.values[i] = getInt(data, i*IntSize)
	}
	return bb
}

// CreateBATBlocks splits entries over as many BAT blocks as needed.
func CreateBATBlocks(bigBlockSize BigBlockSize, entries []int) []*BATBlock {
	perBlock := bigBlockSize.BATEntriesPerBlock()
	blocks := make([]*BATBlock, 0, calculateStorageRequirements(bigBlockSize, len(entries)))
	for j := 0; j < len(entries); j += perBlock {
		end := j + perBlock
		if end > len(entries) {
			end = len(entries)
		}
		bb := NewBATBlock(bigBlockSize)
		copy(bb.values, entries[j:end])
		blocks = append(blocks, bb)
	}
	return blocks
}

// CreateXBATBlocks lays out the extended BAT: each block holds BAT sector
// numbers and, in its last slot, the sector of the next XBAT block.
func CreateXBATBlocks(bigBlockSize BigBlockSize, entries []int, startBlock int) []*BATBlock {
	perBlock := bigBlockSize.XBATEntriesPerBlock()
	blocks := make([]*BATBlock, 0, calculateXBATStorageRequirements(bigBlockSize, len(entries)))
	for j := 0; j < len(entries); j += perBlock {
		end := j + perBlock
		if end > len(entries) {
			end = len(entries)
		}
		bb := NewBATBlock(bigBlockSize)
		copy(bb.values, entries[j:end])
		blocks = append(blocks, bb)
	}
	for index, bb := range blocks {
		if index == len(blocks)-1 {
			bb.setXBATChain(EndOfChain)
		} else {
			bb.setXBATChain(startBlock + index + 1)
		}
	}
	return blocks
}

func (bb *BATBlock) ValueAt(offset int) (int, error) {
	if offset < 0 || offset >= len(bb.values) {
		return 0, errors.Errorf("unable to fetch offset %d as the BAT only contains %d entries",
			offset, len(bb.values))
	}
	return bb.values[offset], nil
}

func (bb *BATBlock) setXBATChain(chainIndex int) {
	bb.values[bb.bigBlockSize.XBATEntriesPerBlock()] = chainIndex
}

func (bb *BATBlock) HasFreeSectors() bool {
	for _, v := range bb.values {
		if v == UnusedBlock {
			return true
		}
	}
	return false
}

func (bb *BATBlock) serialize() []byte {
	data := make([]byte, bb.bigBlockSize.Size)
	for i, v := range bb.values {
		putInt(data, i*IntSize, v)
	}
	return data
}

func (bb *BATBlock) WriteBlocks(w io.Writer) error {
	_, err := w.Write(bb.serialize())
	return err
}

func calculateStorageRequirements(bigBlockSize BigBlockSize, entryCount int) int {
	return blocksNeeded(entryCount, bigBlockSize.BATEntriesPerBlock())
}

func calculateXBATStorageRequirements(bigBlockSize BigBlockSize, entryCount int) int {
	return blocksNeeded(entryCount, bigBlockSize.XBATEntriesPerBlock())
}

func calculateXBATStorageRequirementsForHB(bigBlockSize BigBlockSize, blockCount int) int {
	if blockCount > maxBATsInHeader {
		return calculateXBATStorageRequirements(bigBlockSize, blockCount-maxBATsInHeader)
	}
	return 0
}

// BlockAllocationTableWriter hands out sector runs and serializes the
// resulting table. The same type serves for the BAT and the SBAT.
type BlockAllocationTableWriter struct {
	entries      []int
	blocks       []*BATBlock
	startBlock   int
	bigBlockSize BigBlockSize
}

func NewBlockAllocationTableWriter(bigBlockSize BigBlockSize) *BlockAllocationTableWriter {
	return &BlockAllocationTableWriter{
		bigBlockSize: bigBlockSize,
		startBlock:   EndOfChain,
	}
}

// CreateBlocks allocates space for the BAT itself and any XBAT blocks and
// returns the first BAT sector.
func (b *BlockAllocationTableWriter) CreateBlocks() int {
	xbatBlocks, batBlocks := 0, 0

	for {
		calculatedBATBlocks := calculateStorageRequirements(b.bigBlockSize,
			batBlocks+xbatBlocks+len(b.entries))
		calculatedXBATBlocks := calculateXBATStorageRequirementsForHB(b.bigBlockSize,
			calculatedBATBlocks)

		if batBlocks == calculatedBATBlocks && xbatBlocks == calculatedXBATBlocks {
			// stable ... we're OK
			break
		}
		batBlocks = calculatedBATBlocks
		xbatBlocks = calculatedXBATBlocks
	}
	startBlock := b.allocateMarked(batBlocks, FATSectorBlock)
	b.allocateMarked(xbatBlocks, DIFATSectorBlock)
	b.simpleCreateBlocks()
	return startBlock
}

// allocateSpace chains blockCount new sectors and returns the first one.
func (b *BlockAllocationTableWriter) allocateSpace(blockCount int) int {
	startBlock := len(b.entries)
	if blockCount > 0 {
		for k := 1; k < blockCount; k++ {
			b.entries = append(b.entries, startBlock+k)
		}
		b.entries = append(b.entries, EndOfChain)
	}
	return startBlock
}

func (b *BlockAllocationTableWriter) allocateMarked(blockCount, marker int) int {
	startBlock := len(b.entries)
	for k := 0; k < blockCount; k++ {
		b.entries = append(b.entries, marker)
	}
	return startBlock
}

func (b *BlockAllocationTableWriter) simpleCreateBlocks() {
	b.blocks = CreateBATBlocks(b.bigBlockSize, b.entries)
}

func (b *BlockAllocationTableWriter) StartBlock() int {
	return b.startBlock
}

func (b *BlockAllocationTableWriter) SetStartBlock(startBlock int) {
	b.startBlock = startBlock
}

func (b *BlockAllocationTableWriter) CountBlocks() int {
	return len(b.blocks)
}

func (b *BlockAllocationTableWriter) WriteBlocks(w io.Writer) error {
	for _, block := range b.blocks {
		if err := block.WriteBlocks(w); err != nil {
			return err
		}
	}
	return nil
}
