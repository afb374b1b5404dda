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
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeToBytes(t *testing.T, fs *FileSystem) []byte {
	var buff bytes.Buffer
	require.NoError(t, fs.WriteFileSystem(&buff))
	return buff.Bytes()
}

func readDocument(t *testing.T, dir *DirectoryNode, name string) []byte {
	doc, err := dir.Document(name)
	require.NoError(t, err)
	is := doc.Open()
	defer is.Close()
	data, err := io.ReadAll(is)
	require.NoError(t, err)
	return data
}

func patterned(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// A file needs to be at least 6.875mb big to have an XBAT in it, so
// generate one.
func TestBATandXBAT(t *testing.T) {
	fs := NewFileSystem()
	hugeStream := make([]byte, 8*1024*1024)
	_, err := fs.Root().CreateDocument("BIG", bytes.NewReader(hugeStream))
	require.NoError(t, err)

	fsData := writeToBytes(t, fs)

	header, err := NewHeaderBlockFromReader(bytes.NewReader(fsData))
	require.NoError(t, err)
	require.Equal(t, 109+21, header.BATCount())
	require.Equal(t, 1, header.XBATCount())

	// We should have 21 BATs in the XBAT
	offset := (1 + header.XBATIndex()) * 512
	xbat := BATBlockFromBytes(SmallerBigBlockSizeDetails, fsData[offset:offset+512])
	for i := 0; i < 21; i++ {
		val, err := xbat.ValueAt(i)
		require.NoError(t, err)
		require.NotEqual(t, UnusedBlock, val, "entry %d", i)
	}
	for i := 21; i < 127; i++ {
		val, err := xbat.ValueAt(i)
		require.NoError(t, err)
		require.Equal(t, UnusedBlock, val, "entry %d", i)
	}
	val, err := xbat.ValueAt(127)
	require.NoError(t, err)
	require.Equal(t, EndOfChain, val)

	// Load the blocks and check with that
	r := bytes.NewReader(fsData)
	_, err = NewHeaderBlockFromReader(r)
	require.NoError(t, err)
	blockList, err := RawDataBlockList(r, header.BigBlockSize(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, len(fsData)/512, blockList.BlockCount()+1) // header not counted
	require.NoError(t, blockList.loadBAT(header))

	// Now load it and check
	fs, err = FileSystemFromReader(bytes.NewReader(fsData))
	require.NoError(t, err)
	require.Equal(t, 1, fs.Root().EntryCount())

	big, err := fs.Root().Document("BIG")
	require.NoError(t, err)
	require.Equal(t, len(hugeStream), big.Size())
}

func TestRoundTrip(t *testing.T) {
	for _, bs := range []BigBlockSize{SmallerBigBlockSizeDetails, LargerBigBlockSizeDetails} {
		bs := bs
		t.Run(fmt.Sprint(bs.Size), func(t *testing.T) {
			fs := NewFileSystem(WithBigBlockSize(bs))
			root := fs.Root()

			docs := map[string][]byte{
				"empty":  {},
				"one":    {0x78},
				"small":  patterned(100),
				"edge":   patterned(BigBlockMinimumDocumentSize - 1),
				"cutoff": patterned(BigBlockMinimumDocumentSize),
				"big":    patterned(3*bs.Size + 17),
			}
			for name, data := range docs {
				_, err := root.CreateDocument(name, bytes.NewReader(data))
				require.NoError(t, err)
			}

			sub, err := root.CreateDirectory("sub")
			require.NoError(t, err)
			cid, err := ClassIDFromString("{00020906-0000-0000-C000-000000000046}")
			require.NoError(t, err)
			sub.SetStorageClsid(cid)
			_, err = sub.CreateDocument("nested", bytes.NewReader([]byte("nested data")))
			require.NoError(t, err)
			deeper, err := sub.CreateDirectory("deeper")
			require.NoError(t, err)
			_, err = deeper.CreateDocument("leaf", bytes.NewReader(patterned(5000)))
			require.NoError(t, err)

			fsData := writeToBytes(t, fs)
			require.Zero(t, len(fsData)%bs.Size)

			read, err := FileSystemFromReader(bytes.NewReader(fsData))
			require.NoError(t, err)
			require.Equal(t, bs, read.BigBlockSize())

			readRoot := read.Root()
			require.Equal(t, len(docs)+1, readRoot.EntryCount())
			for name, data := range docs {
				require.Equal(t, data, readDocument(t, readRoot, name), name)
			}

			e, err := readRoot.Entry("sub")
			require.NoError(t, err)
			readSub, ok := e.(*DirectoryNode)
			require.True(t, ok)
			require.Equal(t, cid, readSub.StorageClsid())
			require.Equal(t, []string{"sub"}, readSub.Path())
			require.Equal(t, []byte("nested data"), readDocument(t, readSub, "nested"))

			e, err = readSub.Entry("deeper")
			require.NoError(t, err)
			readDeeper := e.(*DirectoryNode)
			require.Equal(t, []string{"sub", "deeper"}, readDeeper.Path())
			require.Equal(t, patterned(5000), readDocument(t, readDeeper, "leaf"))

			// once read, the layout is stable across rewrites
			rewritten := writeToBytes(t, read)
			reread, err := FileSystemFromReader(bytes.NewReader(rewritten))
			require.NoError(t, err)
			require.Equal(t, rewritten, writeToBytes(t, reread))
		})
	}
}

func TestEmptyFileSystem(t *testing.T) {
	fsData := writeToBytes(t, NewFileSystem())
	require.Equal(t, 3*512, len(fsData)) // header, property table, BAT

	fs, err := FileSystemFromReader(bytes.NewReader(fsData))
	require.NoError(t, err)
	require.True(t, fs.Root().IsEmpty())
	require.True(t, fs.Root().IsRoot())
	require.Equal(t, "Root Entry", fs.Root().Name())
}

func TestManySiblings(t *testing.T) {
	fs := NewFileSystem()
	var names []string
	for i := 0; i < 40; i++ {
		name := strings.Repeat("n", i%7+1) + string(rune('A'+i%26)) + string(rune('a'+i/26))
		names = append(names, name)
		_, err := fs.CreateDocument(name, bytes.NewReader([]byte(name)))
		require.NoError(t, err)
	}

	read, err := FileSystemFromReader(bytes.NewReader(writeToBytes(t, fs)))
	require.NoError(t, err)
	require.Equal(t, len(names), read.Root().EntryCount())
	for _, name := range names {
		require.Equal(t, []byte(name), readDocument(t, read.Root(), name))
	}
}

func TestHeaderErrors(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, err := FileSystemFromReader(bytes.NewReader([]byte("abc")))
		require.True(t, errors.Is(err, ErrInvalidFileFormat))
	})
	t.Run("OOXML", func(t *testing.T) {
		data := make([]byte, 512)
		copy(data, OOXMLFileHeader[:])
		_, err := FileSystemFromReader(bytes.NewReader(data))
		require.True(t, errors.Is(err, ErrOOXMLFileFormat))
	})
	t.Run("bad signature", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x42}, 1024)
		_, err := FileSystemFromReader(bytes.NewReader(data))
		require.True(t, errors.Is(err, ErrInvalidFileFormat))
	})
	t.Run("block size", func(t *testing.T) {
		data := writeToBytes(t, NewFileSystem())
		putShort(data, sectorShiftOffset, 10)
		_, err := FileSystemFromReader(bytes.NewReader(data))
		require.True(t, errors.Is(err, ErrUnsupportedBlockSize))
	})
}

// Check that we do the right thing when the list of which sectors are BAT
// blocks points off the list of sectors that exist in the file.
func TestFATandDIFATsectors(t *testing.T) {
	fs := NewFileSystem()
	_, err := fs.CreateDocument("doc", bytes.NewReader(patterned(10)))
	require.NoError(t, err)
	data := writeToBytes(t, fs)
	putInt(data, batArrayOffset, 695)

	_, err = FileSystemFromReader(bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrCorruptChain))
	require.Contains(t, err.Error(), "your file contains 5 sectors")
}

func TestCircularChain(t *testing.T) {
	fs := NewFileSystem()
	_, err := fs.CreateDocument("big", bytes.NewReader(patterned(2*BigBlockMinimumDocumentSize)))
	require.NoError(t, err)
	data := writeToBytes(t, fs)

	// the document starts at sector 0, make its second sector point back
	// at the first
	header, err := NewHeaderBlockFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	batOffset := (1 + header.BATArray()[0]) * 512
	putInt(data, batOffset+IntSize, 0)

	_, err = FileSystemFromReader(bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrCorruptChain))
}

func TestDirectoryOperations(t *testing.T) {
	fs := NewFileSystem()
	root := fs.Root()

	_, err := root.CreateDocument("doc", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	_, err = root.CreateDocument("doc", bytes.NewReader([]byte("y")))
	require.True(t, errors.Is(err, ErrDuplicateName))
	_, err = root.CreateDirectory("doc")
	require.True(t, errors.Is(err, ErrDuplicateName))
	_, err = root.CreateDocument(strings.Repeat("a", 32), bytes.NewReader(nil))
	require.True(t, errors.Is(err, ErrNameTooLong))
	_, err = root.CreateDocument(strings.Repeat("a", 31), bytes.NewReader(nil))
	require.NoError(t, err)
	for _, name := range []string{"", "a/b", `a\b`, "a:b", "a!b", "../escaped"} {
		_, err = root.CreateDocument(name, bytes.NewReader(nil))
		require.True(t, errors.Is(err, ErrInvalidName), "%q", name)
		_, err = root.CreateDirectory(name)
		require.True(t, errors.Is(err, ErrInvalidName), "%q", name)
		require.False(t, root.HasEntry(name))
	}

	dir, err := root.CreateDirectory("dir")
	require.NoError(t, err)
	_, err = dir.CreateDocument("inner", bytes.NewReader([]byte("z")))
	require.NoError(t, err)
	require.Same(t, fs, dir.FileSystem())
	require.Same(t, root, dir.Parent())

	require.True(t, errors.Is(root.DeleteEntry("dir"), ErrNotEmpty))
	require.True(t, errors.Is(root.DeleteEntry("missing"), ErrNoSuchEntry))

	require.NoError(t, root.RenameEntry("doc", "renamed"))
	require.False(t, root.HasEntry("doc"))
	require.Equal(t, []byte("x"), readDocument(t, root, "renamed"))
	require.True(t, errors.Is(root.RenameEntry("renamed", "dir"), ErrDuplicateName))
	require.True(t, errors.Is(root.RenameEntry("renamed", "a/b"), ErrInvalidName))
	require.True(t, root.HasEntry("renamed"))

	_, err = root.Document("dir")
	require.True(t, errors.Is(err, ErrNoSuchEntry))

	require.NoError(t, dir.DeleteEntry("inner"))
	require.NoError(t, root.DeleteEntry("dir"))
	require.Equal(t, 2, root.EntryCount())

	read, err := FileSystemFromReader(bytes.NewReader(writeToBytes(t, fs)))
	require.NoError(t, err)
	require.True(t, read.Root().HasEntry("renamed"))
	require.True(t, read.Root().HasEntry(strings.Repeat("a", 31)))
	require.False(t, read.Root().HasEntry("dir"))
}

func TestDocumentInputStream(t *testing.T) {
	fs := NewFileSystem()
	doc, err := fs.CreateDocument("doc", bytes.NewReader([]byte("0123456789")))
	require.NoError(t, err)
	require.Equal(t, 10, doc.Size())

	is := doc.Open()
	require.Equal(t, 10, is.Available())

	buf := make([]byte, 4)
	n, err := is.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "0123", string(buf))
	require.Equal(t, 6, is.Available())

	is.Mark()
	_, err = is.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "4567", string(buf))
	is.Reset()
	require.Equal(t, 6, is.Available())

	pos, err := is.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	require.EqualValues(t, 8, pos)
	n, err = is.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "89", string(buf[:n]))

	_, err = is.Read(buf)
	require.Equal(t, io.EOF, err)

	_, err = is.Seek(-1, io.SeekStart)
	require.Error(t, err)

	require.NoError(t, is.Close())
	require.Zero(t, is.Available())
	_, err = is.Read(buf)
	require.True(t, errors.Is(err, ErrClosedStream))
}

func TestClassID(t *testing.T) {
	const guid = "{00020906-0000-0000-C000-000000000046}"
	cid, err := ClassIDFromString(guid)
	require.NoError(t, err)
	require.False(t, cid.IsZero())
	require.Equal(t, guid, cid.String())

	data := make([]byte, 16)
	require.NoError(t, cid.Write(data, 0))
	require.Equal(t, []byte{0x06, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}, data)
	require.Equal(t, cid, ClassIDFromBytes(data, 0))

	require.Error(t, cid.Write(make([]byte, 15), 0))
	_, err = ClassIDFromString("{0002}")
	require.Error(t, err)
	require.True(t, ClassID{}.IsZero())
}
