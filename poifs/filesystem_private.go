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

// documents are padded to whole blocks with this value
const documentPadding byte = 0xFF

// propertyReader rebuilds the node tree from a parsed property table.
type propertyReader struct {
	fs         *FileSystem
	properties *PropertyTable
	bigBlocks  *rawDataBlockList
	small      *smallBlockList
	seen       map[int]bool
}

func (rd *propertyReader) processProperties(prop *Property, dir *DirectoryNode) error {
	children, err := rd.properties.children(prop, rd.seen)
	if err != nil {
		return err
	}
	for _, child := range children {
		switch child.Type() {
		case DirectoryType:
			if err := dir.checkName(child.Name()); err != nil {
				return errors.Wrap(ErrInvalidFileFormat, err.Error())
			}
			sub := newDirectoryNode(child.Name(), rd.fs, dir)
			sub.storageClsid = child.StorageClsid()
			dir.addEntry(sub)
			if err := rd.processProperties(child, sub); err != nil {
				return err
			}
		case DocumentType:
			if err := dir.checkName(child.Name()); err != nil {
				return errors.Wrap(ErrInvalidFileFormat, err.Error())
			}
			data, err := rd.documentData(child)
			if err != nil {
				return errors.Wrapf(err, "read document %q", child.Name())
			}
			dir.addEntry(newDocumentNode(child.Name(), dir, data))
		default:
			rd.fs.log.Warn("skipping property of unexpected type",
				zap.String("name", child.Name()), zap.Uint8("type", child.Type()))
		}
	}
	return nil
}

func (rd *propertyReader) documentData(prop *Property) ([]byte, error) {
	size := prop.Size()
	if size == 0 {
		return []byte{}, nil
	}
	if prop.UseSmallBlocks() {
		return rd.small.fetch(prop.StartBlock(), size)
	}
	data, err := rd.bigBlocks.fetch(prop.StartBlock())
	if err != nil {
		return nil, err
	}
	if len(data) < size {
		return nil, errors.Wrapf(ErrCorruptChain,
			"chain from %d holds %d bytes, %d expected", prop.StartBlock(), len(data), size)
	}
	return data[:size:size], nil
}

type documentEntry struct {
	prop *Property
	data []byte
}

// buildPropertyTable flattens the node tree. Siblings are added to the
// table together so that linkChildren can reference their indices.
func (fs *FileSystem) buildPropertyTable() (*PropertyTable, []documentEntry) {
	pt := NewPropertyTable(fs.bigBlockSize)
	root := pt.Root()
	root.storageClsid = fs.root.storageClsid

	var documents []documentEntry
	var walk func(dir *DirectoryNode, parent *Property)
	walk = func(dir *DirectoryNode, parent *Property) {
		entries := dir.Entries()
		children := make([]*Property, len(entries))
		for j, e := range entries {
			switch node := e.(type) {
			case *DirectoryNode:
				children[j] = newProperty(node.Name(), DirectoryType)
				children[j].storageClsid = node.storageClsid
			case *DocumentNode:
				children[j] = newProperty(node.Name(), DocumentType)
				children[j].size = len(node.data)
				documents = append(documents, documentEntry{prop: children[j], data: node.data})
			}
			pt.AddProperty(children[j])
		}
		linked := make([]*Property, len(children))
		copy(linked, children)
		linkChildren(parent, linked)
		for j, e := range entries {
			if sub, ok := e.(*DirectoryNode); ok {
				walk(sub, children[j])
			}
		}
	}
	walk(fs.root, root)
	return pt, documents
}

// bigBlockStore writes one document of at least 4096 bytes straight into
// big blocks.
type bigBlockStore struct {
	bigBlockSize BigBlockSize
	prop         *Property
	data         []byte
}

func (sb *bigBlockStore) CountBlocks() int {
	return blocksNeeded(len(sb.data), sb.bigBlockSize.Size)
}

func (sb *bigBlockStore) SetStartBlock(index int) {
	sb.prop.SetStartBlock(index)
}

func (sb *bigBlockStore) WriteBlocks(w io.Writer) error {
	return writePadded(w, sb.data, sb.CountBlocks()*sb.bigBlockSize.Size)
}

// smallBlockStore is the mini stream. Its chain of big blocks hangs off the
// root property.
type smallBlockStore struct {
	bigBlockSize BigBlockSize
	root         *Property
	data         []byte
}

func newSmallBlockStore(bigBlockSize BigBlockSize, root *Property) *smallBlockStore {
	return &smallBlockStore{bigBlockSize: bigBlockSize, root: root}
}

// add appends data as a run of small blocks recorded in sbat and returns
// its first small block.
func (sb *smallBlockStore) add(sbat *BlockAllocationTableWriter, data []byte) int {
	count := blocksNeeded(len(data), SmallBlockSize)
	start := sbat.allocateSpace(count)
	sb.data = append(sb.data, data...)
	for pad := count*SmallBlockSize - len(data); pad > 0; pad-- {
		sb.data = append(sb.data, documentPadding)
	}
	sb.root.size = len(sb.data)
	return start
}

func (sb *smallBlockStore) CountBlocks() int {
	return blocksNeeded(len(sb.data), sb.bigBlockSize.Size)
}

func (sb *smallBlockStore) SetStartBlock(index int) {
	sb.root.SetStartBlock(index)
}

func (sb *smallBlockStore) WriteBlocks(w io.Writer) error {
	return writePadded(w, sb.data, sb.CountBlocks()*sb.bigBlockSize.Size)
}

func writePadded(w io.Writer, data []byte, total int) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if pad := total - len(data); pad > 0 {
		padding := make([]byte, pad)
		fill(padding, documentPadding)
		if _, err := w.Write(padding); err != nil {
			return err
		}
	}
	return nil
}
