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
	"strings"

	"github.com/pkg/errors"
)

// invalidNameChars may not appear in an entry name.
const invalidNameChars = `/\:!`

type Entry interface {
	Name() string
	IsDirectory() bool
	IsDocument() bool
	Parent() *DirectoryNode
}

type entryNode struct {
	name   string
	parent *DirectoryNode
}

func (en *entryNode) Name() string {
	return en.name
}

func (en *entryNode) Parent() *DirectoryNode {
	return en.parent
}

func (en *entryNode) IsRoot() bool {
	return en.parent == nil
}

type DirectoryNode struct {
	entryNode
	storageClsid ClassID
	entries      []Entry
	byName       map[string]Entry
	fs           *FileSystem
}

type DocumentNode struct {
	entryNode
	data []byte
}

func newDirectoryNode(name string, fs *FileSystem, parent *DirectoryNode) *DirectoryNode {
	return &DirectoryNode{
		entryNode: entryNode{name: name, parent: parent},
		byName:    make(map[string]Entry),
		fs:        fs,
	}
}

func (dn *DirectoryNode) IsDirectory() bool {
	return true
}

func (dn *DirectoryNode) IsDocument() bool {
	return false
}

func (dn *DirectoryNode) FileSystem() *FileSystem {
	return dn.fs
}

// Path returns the names from the root down to this directory, root excluded.
func (dn *DirectoryNode) Path() []string {
	if dn.IsRoot() {
		return nil
	}
	return append(dn.parent.Path(), dn.name)
}

func (dn *DirectoryNode) Entries() []Entry {
	res := make([]Entry, len(dn.entries))
	copy(res, dn.entries)
	return res
}

func (dn *DirectoryNode) IsEmpty() bool {
	return len(dn.entries) == 0
}

func (dn *DirectoryNode) EntryCount() int {
	return len(dn.entries)
}

func (dn *DirectoryNode) HasEntry(name string) bool {
	_, ok := dn.byName[name]
	return ok
}

func (dn *DirectoryNode) Entry(name string) (Entry, error) {
	e, ok := dn.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchEntry, "%q", name)
	}
	return e, nil
}

// Document is Entry narrowed to documents.
func (dn *DirectoryNode) Document(name string) (*DocumentNode, error) {
	e, err := dn.Entry(name)
	if err != nil {
		return nil, err
	}
	doc, ok := e.(*DocumentNode)
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchEntry, "%q is not a document", name)
	}
	return doc, nil
}

func (dn *DirectoryNode) StorageClsid() ClassID {
	return dn.storageClsid
}

func (dn *DirectoryNode) SetStorageClsid(cid ClassID) {
	dn.storageClsid = cid
}

// checkNewName applies checkName plus the character rules for names this
// package writes. Names read from a file only go through checkName.
func (dn *DirectoryNode) checkNewName(name string) error {
	if name == "" || strings.ContainsAny(name, invalidNameChars) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return dn.checkName(name)
}

func (dn *DirectoryNode) checkName(name string) error {
	if _, ok := truncateName(name); !ok {
		return errors.Wrapf(ErrNameTooLong, "%q", name)
	}
	if dn.HasEntry(name) {
		return errors.Wrapf(ErrDuplicateName, "%q", name)
	}
	return nil
}

func (dn *DirectoryNode) addEntry(e Entry) {
	dn.entries = append(dn.entries, e)
	dn.byName[e.Name()] = e
}

func (dn *DirectoryNode) CreateDirectory(name string) (*DirectoryNode, error) {
	if err := dn.checkNewName(name); err != nil {
		return nil, err
	}
	dir := newDirectoryNode(name, dn.fs, dn)
	dn.addEntry(dir)
	return dir, nil
}

// CreateDocument reads r until EOF and stores the bytes as a new document.
func (dn *DirectoryNode) CreateDocument(name string, r io.Reader) (*DocumentNode, error) {
	if err := dn.checkNewName(name); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read document %q", name)
	}
	doc := newDocumentNode(name, dn, data)
	dn.addEntry(doc)
	return doc, nil
}

// DeleteEntry removes a document or an empty directory.
func (dn *DirectoryNode) DeleteEntry(name string) error {
	e, err := dn.Entry(name)
	if err != nil {
		return err
	}
	if dir, ok := e.(*DirectoryNode); ok && !dir.IsEmpty() {
		return errors.Wrapf(ErrNotEmpty, "%q", name)
	}
	for idx, c := range dn.entries {
		if c == e {
			dn.entries = append(dn.entries[:idx], dn.entries[idx+1:]...)
			break
		}
	}
	delete(dn.byName, name)
	return nil
}

func (dn *DirectoryNode) RenameEntry(oldName, newName string) error {
	e, err := dn.Entry(oldName)
	if err != nil {
		return err
	}
	if err := dn.checkNewName(newName); err != nil {
		return err
	}
	switch node := e.(type) {
	case *DirectoryNode:
		node.name = newName
	case *DocumentNode:
		node.name = newName
	}
	delete(dn.byName, oldName)
	dn.byName[newName] = e
	return nil
}

func newDocumentNode(name string, parent *DirectoryNode, data []byte) *DocumentNode {
	return &DocumentNode{
		entryNode: entryNode{name: name, parent: parent},
		data:      data,
	}
}

func (dn *DocumentNode) IsDirectory() bool {
	return false
}

func (dn *DocumentNode) IsDocument() bool {
	return true
}

func (dn *DocumentNode) Size() int {
	return len(dn.data)
}

// Open returns a fresh stream positioned at the start of the document.
func (dn *DocumentNode) Open() *DocumentInputStream {
	return NewDocumentInputStream(dn)
}
