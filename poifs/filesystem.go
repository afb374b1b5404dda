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

type FileSystem struct {
	root         *DirectoryNode
	bigBlockSize BigBlockSize
	log          *zap.Logger
}

type cfg struct {
	log          *zap.Logger
	bigBlockSize BigBlockSize
}

// Option configures a FileSystem.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:          zap.NewNop(),
		bigBlockSize: SmallerBigBlockSizeDetails,
	}
}

// WithLogger returns an option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l
	}
}

// WithBigBlockSize returns an option to pick the sector size of a new
// file system. Files read from a reader keep the size they were written with.
func WithBigBlockSize(bs BigBlockSize) Option {
	return func(c *cfg) {
		c.bigBlockSize = bs
	}
}

// NewFileSystem creates an empty file system intended for writing.
func NewFileSystem(opts ...Option) *FileSystem {
	c := defaultCfg()
	for _, o := range opts {
		o(c)
	}
	fs := &FileSystem{bigBlockSize: c.bigBlockSize, log: c.log}
	fs.root = newDirectoryNode(rootName, fs, nil)
	return fs
}

// FileSystemFromReader parses a compound file. The reader is read until EOF.
func FileSystemFromReader(r io.Reader, opts ...Option) (*FileSystem, error) {
	c := defaultCfg()
	for _, o := range opts {
		o(c)
	}

	// read the header block from the stream
	headerBlock, err := NewHeaderBlockFromReader(r)
	if err != nil {
		return nil, err
	}
	fs := &FileSystem{bigBlockSize: headerBlock.BigBlockSize(), log: c.log}

	// read the rest of the stream into blocks
	dataBlocks, err := RawDataBlockList(r, fs.bigBlockSize, fs.log)
	if err != nil {
		return nil, err
	}

	// set up the block allocation table (necessary for the
	// data blocks to be manageable)
	if err := dataBlocks.loadBAT(headerBlock); err != nil {
		return nil, err
	}

	// get property table from the document
	properties, err := NewPropertyTableWithList(headerBlock, dataBlocks)
	if err != nil {
		return nil, err
	}

	smallBlocks, err := GetSmallDocumentBlocks(dataBlocks, properties.Root(), headerBlock.SBATStart())
	if err != nil {
		return nil, err
	}

	fs.root = newDirectoryNode(rootName, fs, nil)
	fs.root.storageClsid = properties.Root().StorageClsid()

	rd := &propertyReader{
		fs:         fs,
		properties: properties,
		bigBlocks:  dataBlocks,
		small:      smallBlocks,
		seen:       map[int]bool{0: true},
	}
	if err := rd.processProperties(properties.Root(), fs.root); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSystem) Root() *DirectoryNode {
	return fs.root
}

func (fs *FileSystem) BigBlockSize() BigBlockSize {
	return fs.bigBlockSize
}

func (fs *FileSystem) CreateDirectory(name string) (*DirectoryNode, error) {
	return fs.root.CreateDirectory(name)
}

func (fs *FileSystem) CreateDocument(name string, r io.Reader) (*DocumentNode, error) {
	return fs.root.CreateDocument(name, r)
}

// WriteFileSystem serializes the whole tree: header, big documents,
// property table, mini stream, SBAT, BAT and XBAT, in that order.
func (fs *FileSystem) WriteFileSystem(output io.Writer) error {
	bs := fs.bigBlockSize

	// get the property table ready
	propertyTable, documents := fs.buildPropertyTable()

	// create the small block store, and the SBAT
	sbat := NewBlockAllocationTableWriter(bs)
	smallStore := newSmallBlockStore(bs, propertyTable.Root())
	var bigStores []*bigBlockStore
	for _, doc := range documents {
		switch {
		case len(doc.data) == 0:
			doc.prop.SetStartBlock(EndOfChain)
		case isSmall(len(doc.data)):
			doc.prop.SetStartBlock(smallStore.add(sbat, doc.data))
		default:
			bigStores = append(bigStores, &bigBlockStore{bigBlockSize: bs, prop: doc.prop, data: doc.data})
		}
	}
	sbat.simpleCreateBlocks()

	// create the block allocation table
	bat := NewBlockAllocationTableWriter(bs)

	// walk the list of managed objects, allocating space for each and
	// assigning each a starting block number
	managed := make([]BATManaged, 0, len(bigStores)+3)
	for _, store := range bigStores {
		managed = append(managed, store)
	}
	managed = append(managed, propertyTable, smallStore, sbat)
	for _, bmo := range managed {
		if count := bmo.CountBlocks(); count != 0 {
			bmo.SetStartBlock(bat.allocateSpace(count))
		}
	}

	// allocate space for the block allocation table and take its
	// starting block
	batStartBlock := bat.CreateBlocks()

	header := NewHeaderBlock(bs)
	xbatBlocks := header.setBATBlocks(bat.CountBlocks(), batStartBlock)
	header.SetPropertyStart(propertyTable.StartBlock())
	header.SetSBATStart(sbat.StartBlock())
	header.SetSBATBlockCount(sbat.CountBlocks())
	header.dirCount = propertyTable.CountBlocks()

	writers := make([]BlockWritable, 0, len(bigStores)+len(xbatBlocks)+5)
	writers = append(writers, header)
	for _, store := range bigStores {
		writers = append(writers, store)
	}
	writers = append(writers, propertyTable, smallStore, sbat, bat)
	for _, xbat := range xbatBlocks {
		writers = append(writers, xbat)
	}

	// now, write everything out
	for _, writer := range writers {
		if err := writer.WriteBlocks(output); err != nil {
			return errors.Wrap(err, "write compound file")
		}
	}
	return nil
}

// DocumentInputStream reads one document. It also satisfies io.Seeker.
type DocumentInputStream struct {
	data          []byte
	currentOffset int
	markedOffset  int
	closed        bool
}

func NewDocumentInputStream(doc *DocumentNode) *DocumentInputStream {
	return &DocumentInputStream{data: doc.data}
}

// Available returns the number of bytes left before the end of the document.
func (d *DocumentInputStream) Available() int {
	if d.closed {
		return 0
	}
	return len(d.data) - d.currentOffset
}

func (d *DocumentInputStream) Close() error {
	d.closed = true
	return nil
}

func (d *DocumentInputStream) Mark() {
	d.markedOffset = d.currentOffset
}

func (d *DocumentInputStream) Reset() {
	d.currentOffset = d.markedOffset
}

func (d *DocumentInputStream) Read(p []byte) (int, error) {
	if d.closed {
		return 0, ErrClosedStream
	}
	if len(p) == 0 {
		return 0, nil
	}
	if d.currentOffset >= len(d.data) {
		return 0, io.EOF
	}
	n := copy(p, d.data[d.currentOffset:])
	d.currentOffset += n
	return n, nil
}

func (d *DocumentInputStream) Seek(offset int64, whence int) (int64, error) {
	if d.closed {
		return 0, ErrClosedStream
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(d.currentOffset) + offset
	case io.SeekEnd:
		abs = int64(len(d.data)) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	if abs > int64(len(d.data)) {
		abs = int64(len(d.data))
	}
	d.currentOffset = int(abs)
	return abs, nil
}
