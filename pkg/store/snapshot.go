package store

import (
	"context"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/matzehuels/objgraph/pkg/codec"
	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/observability"
	"github.com/matzehuels/objgraph/pkg/serial"
)

// Payload is the stored form of a snapshot: an encoded tree tagged with the
// format needed to decode it.
type Payload struct {
	ID      string    `cbor:"id"`
	Name    string    `cbor:"name"`
	Format  string    `cbor:"format"`
	Created time.Time `cbor:"created"`
	Data    []byte    `cbor:"data"`
}

// Snapshots stores object graphs by name.
type Snapshots struct {
	store  Store
	m      *serial.Marshaller
	format codec.Format
	keyer  Keyer
	ttl    time.Duration
}

// SnapshotOption configures Snapshots.
type SnapshotOption func(*Snapshots)

// WithKeyer sets the keyer used to build backend keys.
func WithKeyer(k Keyer) SnapshotOption {
	return func(s *Snapshots) {
		if k != nil {
			s.keyer = k
		}
	}
}

// WithTTL sets the expiry of stored snapshots. Zero keeps them forever.
func WithTTL(ttl time.Duration) SnapshotOption {
	return func(s *Snapshots) { s.ttl = ttl }
}

// NewSnapshots returns a snapshot store over st. Trees are encoded with f,
// or CBOR when f is nil. m may be nil when only the tree methods are used.
func NewSnapshots(st Store, m *serial.Marshaller, f codec.Format, opts ...SnapshotOption) *Snapshots {
	if f == nil {
		f = codec.CBOR
	}
	s := &Snapshots{
		store:  st,
		m:      m,
		format: f,
		keyer:  NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put exports v and stores the tree under name.
func (s *Snapshots) Put(ctx context.Context, name string, v any, opts ...serial.ExportOption) (*Payload, error) {
	if s.m == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "snapshots: no marshaller configured")
	}
	tree, err := s.m.Export(ctx, v, opts...)
	if err != nil {
		return nil, err
	}
	return s.PutTree(ctx, name, tree)
}

// PutTree encodes tree and stores it under name.
func (s *Snapshots) PutTree(ctx context.Context, name string, tree any) (*Payload, error) {
	if err := errs.ValidateKey(name); err != nil {
		return nil, err
	}
	data, err := codec.Marshal(s.format, tree)
	if err != nil {
		return nil, err
	}

	p := &Payload{
		ID:      uuid.NewString(),
		Name:    name,
		Format:  s.format.Name(),
		Created: time.Now().UTC(),
		Data:    data,
	}
	blob, err := cbor.Marshal(p)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode snapshot %q", name)
	}
	if err := s.store.Set(ctx, s.keyer.SnapshotKey(name), blob, s.ttl); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "store snapshot %q", name)
	}
	observability.Store().OnStoreSet(ctx, BackendOf(s.store), len(blob))
	return p, nil
}

// Payload returns the stored payload for name. A missing snapshot yields
// an error matching both ErrNotFound and NOT_FOUND.
func (s *Snapshots) Payload(ctx context.Context, name string) (*Payload, error) {
	if err := errs.ValidateKey(name); err != nil {
		return nil, err
	}
	backend := BackendOf(s.store)

	blob, ok, err := s.store.Get(ctx, s.keyer.SnapshotKey(name))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "load snapshot %q", name)
	}
	if !ok {
		observability.Store().OnStoreMiss(ctx, backend)
		return nil, errs.Wrap(errs.ErrCodeNotFound, ErrNotFound, "snapshot %q", name)
	}
	observability.Store().OnStoreHit(ctx, backend)

	var p Payload
	if err := cbor.Unmarshal(blob, &p); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode snapshot %q", name)
	}
	return &p, nil
}

// GetTree loads and decodes the tree stored under name.
func (s *Snapshots) GetTree(ctx context.Context, name string) (any, error) {
	p, err := s.Payload(ctx, name)
	if err != nil {
		return nil, err
	}
	f, err := codec.Lookup(p.Format)
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal(f, p.Data)
}

// Get loads the snapshot stored under name and imports it. Like
// [serial.Marshaller.Import], a partial graph comes back together with a
// *serial.PartialError.
func (s *Snapshots) Get(ctx context.Context, name string) (any, error) {
	if s.m == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "snapshots: no marshaller configured")
	}
	tree, err := s.GetTree(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.m.Import(ctx, tree)
}

// Delete removes the snapshot stored under name.
func (s *Snapshots) Delete(ctx context.Context, name string) error {
	if err := errs.ValidateKey(name); err != nil {
		return err
	}
	return s.store.Delete(ctx, s.keyer.SnapshotKey(name))
}

// Clear removes every entry of the underlying store.
func (s *Snapshots) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
