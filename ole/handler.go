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

// Package ole carries binary OLE streams through hosts that only store
// named text values. Every sub-stream lives in one compound container as
// a 4 byte little-endian uncompressed length followed by raw deflate data,
// and crosses the API as base64.
package ole

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/naqvis/oleembed/compression"
	"github.com/naqvis/oleembed/poifs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ReservedName addresses the whole container as one opaque blob.
const ReservedName = "oledata.mso"

// State tells whether a Handler holds a container and how it got it.
type State int

const (
	// StateEmpty means there is neither a root stream nor a container.
	StateEmpty State = iota
	// StateRootOnly means the root stream was set through ReservedName.
	StateRootOnly
	// StatePopulated means the container was created on the first
	// sub-stream insert.
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateRootOnly:
		return "root-only"
	case StatePopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// Handler maps names to sub-streams of one compound container.
// It is not safe for concurrent use.
type Handler struct {
	*cfg

	compression *compression.Config
	cache       *simplelru.LRU[string, []byte]

	state   State
	root    *tempStream
	storage *compoundStorage
	// set when the root stream could not be parsed as a container
	rootErr error
}

// New creates an empty Handler.
func New(opts ...Option) (*Handler, error) {
	c := defaultCfg()
	for _, o := range opts {
		o(c)
	}
	if c.tempFs == nil {
		c.tempFs = afero.NewMemMapFs()
	}

	h := &Handler{
		cfg:         c,
		compression: &compression.Config{Level: c.level},
	}
	if err := h.compression.Init(); err != nil {
		return nil, err
	}

	switch {
	case c.cacheSize < 0:
		return nil, errors.Errorf("invalid cache size %d", c.cacheSize)
	case c.cacheSize > 0:
		cache, err := simplelru.NewLRU[string, []byte](c.cacheSize, nil)
		if err != nil {
			return nil, errors.Wrap(err, "create sub-stream cache")
		}
		h.cache = cache
	}
	return h, nil
}

func (h *Handler) State() State {
	return h.state
}

func (h *Handler) poifsOptions() []poifs.Option {
	return []poifs.Option{
		poifs.WithLogger(h.log),
		poifs.WithBigBlockSize(h.bigBlockSize),
	}
}

// Insert stores the base64 encoded content under name. Inserting
// ReservedName replaces the whole container; any other name is added to
// the container and committed before Insert returns.
func (h *Handler) Insert(name, content string) error {
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return errors.Wrapf(err, "decode content of %q", name)
	}
	return h.Put(name, data)
}

// Put is Insert for raw bytes.
func (h *Handler) Put(name string, data []byte) error {
	if name == ReservedName {
		return h.setRoot(data)
	}
	return h.putSubStream(name, data)
}

func (h *Handler) setRoot(data []byte) error {
	root, err := newTempStreamWith(h.tempFs, data)
	if err != nil {
		return err
	}
	h.discard()
	h.root = root
	h.state = StateRootOnly

	if len(data) == 0 {
		h.storage = newCompoundStorage(root, h.log, h.poifsOptions()...)
		return nil
	}
	storage, err := openCompoundStorage(root, h.log, h.poifsOptions()...)
	if err != nil {
		h.log.Warn("root stream is not a compound file",
			zap.Int("size", len(data)), zap.Error(err))
		h.rootErr = err
		return nil
	}
	h.storage = storage
	h.log.Debug("root stream replaced",
		zap.Int("size", len(data)), zap.Strings("names", storage.ElementNames()))
	return nil
}

func (h *Handler) ensureStorage() error {
	if h.storage != nil {
		return nil
	}
	if h.rootErr != nil {
		return errors.Wrap(h.rootErr, "root stream holds no container")
	}
	root, err := newTempStream(h.tempFs)
	if err != nil {
		return err
	}
	h.root = root
	h.storage = newCompoundStorage(root, h.log, h.poifsOptions()...)
	h.state = StatePopulated
	return nil
}

func (h *Handler) putSubStream(name string, data []byte) error {
	if err := h.ensureStorage(); err != nil {
		return err
	}
	record, err := EncodeRecord(h.compression, data)
	if err != nil {
		return errors.Wrapf(err, "encode %q", name)
	}

	tmp, err := newTempStreamWith(h.tempFs, record)
	if err != nil {
		return err
	}
	defer h.release(tmp)

	if err := h.storage.InsertByName(name, tmp); err != nil {
		return errors.Wrapf(err, "insert %q", name)
	}
	if err := h.storage.Commit(); err != nil {
		// the tree must match what the root stream will next hold
		if rmErr := h.storage.RemoveByName(name); rmErr != nil {
			h.log.Warn("could not roll back sub-stream", zap.String("name", name), zap.Error(rmErr))
		}
		return err
	}
	if h.cache != nil {
		h.cache.Remove(name)
	}
	h.log.Debug("sub-stream inserted",
		zap.String("name", name), zap.Int("size", len(data)), zap.Int("stored", len(record)))
	return nil
}

// Get returns the base64 encoded content stored under name. Failures are
// reported as one of the Sentinel strings instead.
func (h *Handler) Get(name string) string {
	data, err := h.Lookup(name)
	if err != nil {
		h.log.Debug("sub-stream lookup failed", zap.String("name", name), zap.Error(err))
		return Sentinel(err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Lookup returns the decoded content stored under name. For ReservedName
// it returns the root stream, which is empty until something is inserted.
func (h *Handler) Lookup(name string) ([]byte, error) {
	if name == ReservedName {
		if h.root == nil {
			return []byte{}, nil
		}
		return h.root.Bytes()
	}

	if h.cache != nil {
		if data, ok := h.cache.Get(name); ok {
			return bytes.Clone(data), nil
		}
	}
	if h.storage == nil || !h.storage.HasByName(name) {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}

	r, err := h.storage.GetByName(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek %q", name)
	}
	data, err := readRecord(h.compression, r)
	if err != nil {
		return nil, errors.Wrapf(err, "%q", name)
	}
	if h.cache != nil {
		h.cache.Add(name, bytes.Clone(data))
	}
	return data, nil
}

// Remove deletes a sub-stream and commits. Removing ReservedName drops
// the container and returns the handler to StateEmpty.
func (h *Handler) Remove(name string) error {
	if name == ReservedName {
		h.discard()
		h.state = StateEmpty
		return nil
	}
	if h.storage == nil {
		return errors.Wrapf(ErrNotFound, "%q", name)
	}
	if err := h.storage.RemoveByName(name); err != nil {
		return err
	}
	if err := h.storage.Commit(); err != nil {
		return err
	}
	if h.cache != nil {
		h.cache.Remove(name)
	}
	h.log.Debug("sub-stream removed", zap.String("name", name))
	return nil
}

// Names lists the sub-streams of the container in name order.
func (h *Handler) Names() []string {
	if h.storage == nil {
		return nil
	}
	return h.storage.ElementNames()
}

// WriteTo copies the root stream to w.
func (h *Handler) WriteTo(w io.Writer) (int64, error) {
	if h.root == nil {
		return 0, nil
	}
	if err := h.root.Rewind(); err != nil {
		return 0, err
	}
	return io.Copy(w, h.root)
}

// Close releases the temporary streams. The handler is left empty and
// may be reused.
func (h *Handler) Close() error {
	var err error
	if h.root != nil {
		err = h.root.Release()
		h.root = nil
	}
	h.discard()
	h.state = StateEmpty
	return err
}

func (h *Handler) discard() {
	if h.root != nil {
		h.release(h.root)
	}
	h.root = nil
	h.storage = nil
	h.rootErr = nil
	if h.cache != nil {
		h.cache.Purge()
	}
}

func (h *Handler) release(ts *tempStream) {
	if err := ts.Release(); err != nil {
		h.log.Warn("could not release temporary stream", zap.Error(err))
	}
}
