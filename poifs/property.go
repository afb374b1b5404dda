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
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

const (
	nameSizeOffset = 0x40
	maxNameLength  = nameSizeOffset/ShortSize - 1
	noIndex        = -1

	// useful offsets
	propertyTypeOffset     = 0x42
	nodeColorOffset        = 0x43
	previousPropertyOffset = 0x44
	nextPropertyOffset     = 0x48
	childPropertyOffset    = 0x4C
	storageClsidOffset     = 0x50
	userFlagsOffset        = 0x60
	createdOffset          = 0x64
	modifiedOffset         = 0x6C
	startBlockOffset       = 0x74
	sizeOffset             = 0x78

	// node colors
	nodeRed   byte = 0
	nodeBlack byte = 1

	EmptyType     byte = 0
	DirectoryType byte = 1
	DocumentType  byte = 2
	RootType      byte = 5

	rootName = "Root Entry"
)

// Property is one 128 byte entry of the property table (the directory).
type Property struct {
	name         string
	propertyType byte
	nodeColor    byte
	previous     int
	next         int
	child        int
	storageClsid ClassID
	userFlags    int
	created      uint64
	modified     uint64
	startBlock   int
	size         int
	index        int
}

func newProperty(name string, propertyType byte) *Property {
	p := &Property{
		propertyType: propertyType,
		nodeColor:    nodeBlack,
		previous:     noIndex,
		next:         noIndex,
		child:        noIndex,
		startBlock:   EndOfChain,
		index:        noIndex,
	}
	p.name, _ = truncateName(name)
	return p
}

func NewRootProperty() *Property {
	return newProperty(rootName, RootType)
}

func parseProperty(index int, data []byte) *Property {
	p := &Property{
		propertyType: data[propertyTypeOffset],
		nodeColor:    data[nodeColorOffset],
		previous:     getInt(data, previousPropertyOffset),
		next:         getInt(data, nextPropertyOffset),
		child:        getInt(data, childPropertyOffset),
		storageClsid: ClassIDFromBytes(data, storageClsidOffset),
		userFlags:    getInt(data, userFlagsOffset),
		created:      binary.LittleEndian.Uint64(data[createdOffset:]),
		modified:     binary.LittleEndian.Uint64(data[modifiedOffset:]),
		startBlock:   getInt(data, startBlockOffset),
		size:         int(binary.LittleEndian.Uint32(data[sizeOffset:])),
		index:        index,
	}

	nameLength := int(getShort(data, nameSizeOffset))/ShortSize - 1
	if nameLength > maxNameLength {
		nameLength = maxNameLength
	}
	if nameLength > 0 {
		chars := make([]uint16, nameLength)
		for j := range chars {
			chars[j] = getShort(data, j*ShortSize)
		}
		p.name = string(utf16.Decode(chars))
	}
	return p
}

// truncateName cuts name down to what fits the 31 UTF-16 unit name field.
func truncateName(name string) (string, bool) {
	units := utf16.Encode([]rune(name))
	if len(units) <= maxNameLength {
		return name, true
	}
	return string(utf16.Decode(units[:maxNameLength])), false
}

func (p *Property) Name() string {
	return p.name
}

func (p *Property) Type() byte {
	return p.propertyType
}

func (p *Property) IsDirectory() bool {
	return p.propertyType == DirectoryType || p.propertyType == RootType
}

func (p *Property) IsDocument() bool {
	return p.propertyType == DocumentType
}

func (p *Property) Size() int {
	return p.size
}

func (p *Property) StartBlock() int {
	return p.startBlock
}

func (p *Property) SetStartBlock(startBlock int) {
	p.startBlock = startBlock
}

func (p *Property) StorageClsid() ClassID {
	return p.storageClsid
}

// UseSmallBlocks reports whether the document lives in the mini stream.
func (p *Property) UseSmallBlocks() bool {
	return isSmall(p.size)
}

func (p *Property) serialize(data []byte) {
	if p.propertyType != EmptyType {
		units := utf16.Encode([]rune(p.name))
		if len(units) > maxNameLength {
			units = units[:maxNameLength]
		}
		for j, u := range units {
			putShort(data, j*ShortSize, u)
		}
		putShort(data, nameSizeOffset, uint16((len(units)+1)*ShortSize))
	}
	data[propertyTypeOffset] = p.propertyType
	data[nodeColorOffset] = p.nodeColor
	putInt(data, previousPropertyOffset, p.previous)
	putInt(data, nextPropertyOffset, p.next)
	putInt(data, childPropertyOffset, p.child)
	_ = p.storageClsid.Write(data, storageClsidOffset)
	putInt(data, userFlagsOffset, p.userFlags)
	binary.LittleEndian.PutUint64(data[createdOffset:], p.created)
	binary.LittleEndian.PutUint64(data[modifiedOffset:], p.modified)
	putInt(data, startBlockOffset, p.startBlock)
	binary.LittleEndian.PutUint32(data[sizeOffset:], uint32(p.size))
}

// compareNames orders siblings the way compound file readers expect:
// shorter names first, then case-insensitively.
func compareNames(name1, name2 string) int {
	result := len(utf16.Encode([]rune(name1))) - len(utf16.Encode([]rune(name2)))
	if result == 0 {
		result = strings.Compare(strings.ToUpper(name1), strings.ToUpper(name2))
	}
	return result
}

// linkChildren sorts children and hangs them off parent as a binary tree:
// the midpoint is the subtree root, smaller names chain left, larger right.
func linkChildren(parent *Property, children []*Property) {
	if len(children) == 0 {
		parent.child = noIndex
		return
	}
	sort.SliceStable(children, func(i, j int) bool {
		return compareNames(children[i].name, children[j].name) < 0
	})
	for _, c := range children {
		c.previous, c.next = noIndex, noIndex
	}

	midpoint := len(children) / 2
	parent.child = children[midpoint].index
	for j := 1; j <= midpoint; j++ {
		children[j].previous = children[j-1].index
	}
	for j := midpoint; j < len(children)-1; j++ {
		children[j].next = children[j+1].index
	}
}

// PropertyTable is the flat list of properties; index 0 is the root.
type PropertyTable struct {
	bigBlockSize BigBlockSize
	properties   []*Property
	startBlock   int
}

func NewPropertyTable(bigBlockSize BigBlockSize) *PropertyTable {
	pt := &PropertyTable{bigBlockSize: bigBlockSize, startBlock: EndOfChain}
	pt.AddProperty(NewRootProperty())
	return pt
}

func NewPropertyTableWithList(hb *HeaderBlock, blockList *rawDataBlockList) (*PropertyTable, error) {
	data, err := blockList.fetch(hb.PropertyStart())
	if err != nil {
		return nil, errors.Wrap(err, "read property table")
	}
	pt := &PropertyTable{bigBlockSize: hb.BigBlockSize(), startBlock: hb.PropertyStart()}
	for offset := 0; offset+PropertySize <= len(data); offset += PropertySize {
		pt.properties = append(pt.properties, parseProperty(len(pt.properties), data[offset:offset+PropertySize]))
	}
	if len(pt.properties) == 0 || pt.properties[0].propertyType != RootType {
		return nil, errors.Wrap(ErrInvalidFileFormat, "property table has no root entry")
	}
	pt.properties[0].name = rootName
	return pt, nil
}

func (pt *PropertyTable) Root() *Property {
	return pt.properties[0]
}

func (pt *PropertyTable) AddProperty(prop *Property) {
	prop.index = len(pt.properties)
	pt.properties = append(pt.properties, prop)
}

func (pt *PropertyTable) property(index int) (*Property, error) {
	if index < 0 || index >= len(pt.properties) {
		return nil, errors.Wrapf(ErrInvalidFileFormat, "property index %d out of range", index)
	}
	return pt.properties[index], nil
}

// children walks the sibling tree below dir and returns its members in
// name order. seen is shared across a whole read to reject properties that
// are referenced twice.
func (pt *PropertyTable) children(dir *Property, seen map[int]bool) ([]*Property, error) {
	var res []*Property
	var pending stack
	current := dir.child
	for current != noIndex || !pending.isEmpty() {
		for current != noIndex {
			prop, err := pt.property(current)
			if err != nil {
				return nil, err
			}
			if seen[current] {
				return nil, errors.Wrapf(ErrInvalidFileFormat, "property %d referenced twice", current)
			}
			seen[current] = true
			pending.push(current)
			current = prop.previous
		}
		prop := pt.properties[pending.pop()]
		res = append(res, prop)
		current = prop.next
	}
	return res, nil
}

func (pt *PropertyTable) StartBlock() int {
	return pt.startBlock
}

func (pt *PropertyTable) SetStartBlock(index int) {
	pt.startBlock = index
}

func (pt *PropertyTable) CountBlocks() int {
	return blocksNeeded(len(pt.properties), pt.bigBlockSize.PropertiesPerBlock())
}

// WriteBlocks writes every property, padding the last block with empty ones.
func (pt *PropertyTable) WriteBlocks(w io.Writer) error {
	count := pt.CountBlocks() * pt.bigBlockSize.PropertiesPerBlock()
	empty := newProperty("", EmptyType)
	empty.startBlock = 0
	data := make([]byte, PropertySize)
	for j := 0; j < count; j++ {
		prop := empty
		if j < len(pt.properties) {
			prop = pt.properties[j]
		}
		fill(data, 0)
		prop.serialize(data)
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
