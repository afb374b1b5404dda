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

package ole

import (
	"io"
	"sort"

	"github.com/naqvis/oleembed/poifs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Storage is the flat view of a compound file the handler works with:
// documents directly below the root, addressed by name.
type Storage interface {
	HasByName(name string) bool
	GetByName(name string) (io.ReadSeeker, error)
	InsertByName(name string, r io.Reader) error
	RemoveByName(name string) error
	ElementNames() []string
	// Commit writes the storage back into the stream it was opened on.
	Commit() error
}

type compoundStorage struct {
	fs      *poifs.FileSystem
	backing *tempStream
	log     *zap.Logger
}

// newCompoundStorage creates an empty storage committing into backing.
func newCompoundStorage(backing *tempStream, log *zap.Logger, opts ...poifs.Option) *compoundStorage {
	return &compoundStorage{
		fs:      poifs.NewFileSystem(opts...),
		backing: backing,
		log:     log,
	}
}

// openCompoundStorage parses backing from its start.
func openCompoundStorage(backing *tempStream, log *zap.Logger, opts ...poifs.Option) (*compoundStorage, error) {
	if err := backing.Rewind(); err != nil {
		return nil, err
	}
	fs, err := poifs.FileSystemFromReader(backing, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "open compound storage")
	}
	return &compoundStorage{fs: fs, backing: backing, log: log}, nil
}

func (s *compoundStorage) HasByName(name string) bool {
	_, err := s.fs.Root().Document(name)
	return err == nil
}

func (s *compoundStorage) GetByName(name string) (io.ReadSeeker, error) {
	doc, err := s.fs.Root().Document(name)
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	return doc.Open(), nil
}

func (s *compoundStorage) InsertByName(name string, r io.Reader) error {
	_, err := s.fs.Root().CreateDocument(name, r)
	return err
}

func (s *compoundStorage) RemoveByName(name string) error {
	if !s.HasByName(name) {
		return errors.Wrapf(ErrNotFound, "%q", name)
	}
	return s.fs.Root().DeleteEntry(name)
}

// ElementNames lists the documents below the root in name order.
func (s *compoundStorage) ElementNames() []string {
	var names []string
	for _, e := range s.fs.Root().Entries() {
		if e.IsDocument() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (s *compoundStorage) Commit() error {
	if err := s.backing.Rewind(); err != nil {
		return err
	}
	if err := s.backing.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate root stream")
	}
	if err := s.fs.WriteFileSystem(s.backing); err != nil {
		return errors.Wrap(err, "commit compound storage")
	}
	if size, err := s.backing.Size(); err == nil {
		s.log.Debug("compound storage committed", zap.Int64("size", size))
	}
	return s.backing.Rewind()
}
