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
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// useful offsets
	signatureOffset      = 0
	minorVersionOffset   = 0x18
	majorVersionOffset   = 0x1A
	byteOrderOffset      = 0x1C
	sectorShiftOffset    = 0x1E
	miniSectorOffset     = 0x20
	dirCountOffset       = 0x28
	batCountOffset       = 0x2C
	propertyStartOffset  = 0x30
	miniCutoffOffset     = 0x38
	sbatStartOffset      = 0x3C
	sbatBlockCountOffset = 0x40
	xbatStartOffset      = 0x44
	xbatCountOffset      = 0x48
	batArrayOffset       = 0x4C

	headerSize = SmallerBigBlockSize

	// If 4k blocks, rest is blank
	maxBATsInHeader = (headerSize - batArrayOffset) / IntSize
)

type HeaderBlock struct {
	bigBlockSize  BigBlockSize
	batCount      int
	propertyStart int
	sbatStart     int
	sbatCount     int
	xbatStart     int
	xbatCount     int
	dirCount      int
	batArray      []int
}

// NewHeaderBlock creates a header block initialized with default values.
func NewHeaderBlock(bigBlockSize BigBlockSize) *HeaderBlock {
	return &HeaderBlock{
		bigBlockSize:  bigBlockSize,
		propertyStart: EndOfChain,
		sbatStart:     EndOfChain,
		xbatStart:     EndOfChain,
	}
}

func NewHeaderBlockFromReader(r io.Reader) (*HeaderBlock, error) {
	// Grab the first 512 bytes
	// (For 4096 sized blocks, the remaining 3584 bytes are zero)
	data := make([]byte, headerSize)
	n, err := io.ReadFull(r, data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFileFormat,
			"unable to read entire header, %d read; expected %d bytes", n, headerSize)
	}
	hb, err := newHeaderBlockFromBytes(data)
	if err != nil {
		return nil, err
	}
	// Fetch the rest of the block if needed
	if rest := hb.bigBlockSize.Size - headerSize; rest > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(rest)); err != nil {
			return nil, errors.Wrap(err, "unable to read header padding")
		}
	}
	return hb, nil
}

func newHeaderBlockFromBytes(data []byte) (*HeaderBlock, error) {
	signature := binary.LittleEndian.Uint64(data[signatureOffset:])
	if signature != Signature {
		if data[0] == OOXMLFileHeader[0] && data[1] == OOXMLFileHeader[1] &&
			data[2] == OOXMLFileHeader[2] && data[3] == OOXMLFileHeader[3] {
			return nil, ErrOOXMLFileFormat
		}
		if (signature & 0xFF8FFFFFFFFFFFFF) == 0x0010000200040009 {
			return nil, ErrBIFF2FileFormat
		}
		return nil, errors.Wrapf(ErrInvalidFileFormat, "unknown header signature %016X", signature)
	}

	// Figure out our block size
	bigBlockSize, err := bigBlockSizeFromShift(getShort(data, sectorShiftOffset))
	if err != nil {
		return nil, err
	}

	hb := &HeaderBlock{
		bigBlockSize:  bigBlockSize,
		batCount:      getInt(data, batCountOffset),
		propertyStart: getInt(data, propertyStartOffset),
		sbatStart:     getInt(data, sbatStartOffset),
		sbatCount:     getInt(data, sbatBlockCountOffset),
		xbatStart:     getInt(data, xbatStartOffset),
		xbatCount:     getInt(data, xbatCountOffset),
		dirCount:      getInt(data, dirCountOffset),
	}
	if hb.batCount < 0 || hb.batCount > MaxBlockCount {
		return nil, errors.Wrapf(ErrInvalidFileFormat,
			"illegal block count %d, should be between 0 and %d", hb.batCount, MaxBlockCount)
	}

	count := hb.batCount
	if count > maxBATsInHeader {
		count = maxBATsInHeader
	}
	hb.batArray = make([]int, count)
	for j := range hb.batArray {
		hb.batArray[j] = getInt(data, batArrayOffset+j*IntSize)
	}
	return hb, nil
}

func (hb *HeaderBlock) PropertyStart() int {
	return hb.propertyStart
}

func (hb *HeaderBlock) SetPropertyStart(startBlock int) {
	hb.propertyStart = startBlock
}

// SBATStart returns the start of the small block (MiniFAT) allocation table.
func (hb *HeaderBlock) SBATStart() int {
	return hb.sbatStart
}

func (hb *HeaderBlock) SBATCount() int {
	return hb.sbatCount
}

func (hb *HeaderBlock) SetSBATStart(startBlock int) {
	hb.sbatStart = startBlock
}

func (hb *HeaderBlock) SetSBATBlockCount(count int) {
	hb.sbatCount = count
}

func (hb *HeaderBlock) BATCount() int {
	return hb.batCount
}

// BATArray returns the BAT sector numbers held in the header itself.
func (hb *HeaderBlock) BATArray() []int {
	res := make([]int, len(hb.batArray))
	copy(res, hb.batArray)
	return res
}

func (hb *HeaderBlock) XBATCount() int {
	return hb.xbatCount
}

func (hb *HeaderBlock) XBATIndex() int {
	return hb.xbatStart
}

func (hb *HeaderBlock) BigBlockSize() BigBlockSize {
	return hb.bigBlockSize
}

// setBATBlocks records where the BAT lives and returns the XBAT blocks
// needed for the BAT sectors that do not fit in the header.
func (hb *HeaderBlock) setBATBlocks(blockCount, startBlock int) []*BATBlock {
	hb.batCount = blockCount

	limit := blockCount
	if limit > maxBATsInHeader {
		limit = maxBATsInHeader
	}
	hb.batArray = make([]int, limit)
	for j := range hb.batArray {
		hb.batArray[j] = startBlock + j
	}

	var xbats []*BATBlock
	if blockCount > maxBATsInHeader {
		excess := make([]int, blockCount-maxBATsInHeader)
		for j := range excess {
			excess[j] = startBlock + j + maxBATsInHeader
		}
		xbats = CreateXBATBlocks(hb.bigBlockSize, excess, startBlock+blockCount)
		hb.xbatStart = startBlock + blockCount
	} else {
		hb.xbatStart = EndOfChain
	}
	hb.xbatCount = len(xbats)
	return xbats
}

// Data serializes the 512 meaningful header bytes.
func (hb *HeaderBlock) Data() []byte {
	data := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(data[signatureOffset:], Signature)
	putShort(data, minorVersionOffset, 0x3E)
	if hb.bigBlockSize.Size == LargerBigBlockSize {
		putShort(data, majorVersionOffset, 4)
		putInt(data, dirCountOffset, hb.dirCount)
	} else {
		putShort(data, majorVersionOffset, 3)
	}
	putShort(data, byteOrderOffset, 0xFFFE)
	putShort(data, sectorShiftOffset, hb.bigBlockSize.Shift)
	putShort(data, miniSectorOffset, 6)
	putInt(data, batCountOffset, hb.batCount)
	putInt(data, propertyStartOffset, hb.propertyStart)
	putInt(data, miniCutoffOffset, BigBlockMinimumDocumentSize)
	putInt(data, sbatStartOffset, hb.sbatStart)
	putInt(data, sbatBlockCountOffset, hb.sbatCount)
	putInt(data, xbatStartOffset, hb.xbatStart)
	putInt(data, xbatCountOffset, hb.xbatCount)

	for j := 0; j < maxBATsInHeader; j++ {
		val := UnusedBlock
		if j < len(hb.batArray) {
			val = hb.batArray[j]
		}
		putInt(data, batArrayOffset+j*IntSize, val)
	}
	return data
}

func (hb *HeaderBlock) WriteBlocks(w io.Writer) error {
	if _, err := w.Write(hb.Data()); err != nil {
		return err
	}
	// Now do the padding if needed
	if pad := hb.bigBlockSize.Size - headerSize; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	return nil
}
