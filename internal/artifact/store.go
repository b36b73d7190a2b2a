// Package artifact persists a fitted vectorizer and the master document-term
// matrix as compressed blobs, so a later match run can skip refitting.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"

	"entitymatch/internal/blobstore"
	"entitymatch/internal/domain"
	"entitymatch/internal/sparse"
	"entitymatch/internal/tfidf"
)

// Blob names below the store prefix.
const (
	VectorizerBlob = "vectorizer.model"
	MatrixBlob     = "tf_idf.model"
)

// Model is a fitted vectorizer, the master matrix it produced and the
// fingerprint of the master records it was fitted on.
type Model struct {
	Vectorizer  *tfidf.Vectorizer
	Matrix      *sparse.Matrix
	Fingerprint string
}

type vectorizerPayload struct {
	Fingerprint string      `json:"fingerprint"`
	State       tfidf.State `json:"state"`
}

type matrixPayload struct {
	Fingerprint string         `json:"fingerprint"`
	Matrix      *sparse.Matrix `json:"matrix"`
}

// Store reads and writes artifacts through a blob store.
type Store struct {
	blobs  blobstore.Store
	prefix string
	codec  Codec
}

// NewStore creates an artifact store writing below prefix with codec.
func NewStore(blobs blobstore.Store, prefix string, codec Codec) *Store {
	return &Store{blobs: blobs, prefix: prefix, codec: codec}
}

func (s *Store) name(blob string) string {
	return path.Join(s.prefix, blob)
}

// Save writes the matrix and then the vectorizer, both tagged with the
// model fingerprint. If the vectorizer write fails the new matrix is removed
// again, so no half-written pair is left behind.
func (s *Store) Save(ctx context.Context, m *Model) error {
	if err := s.put(ctx, MatrixBlob, matrixPayload{Fingerprint: m.Fingerprint, Matrix: m.Matrix}); err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	err := s.put(ctx, VectorizerBlob, vectorizerPayload{Fingerprint: m.Fingerprint, State: m.Vectorizer.State()})
	if err == nil {
		return nil
	}
	err = fmt.Errorf("save vectorizer: %w", err)
	if derr := s.blobs.Delete(ctx, s.name(MatrixBlob)); derr != nil && !errors.Is(derr, blobstore.ErrNotFound) {
		err = errors.Join(err, fmt.Errorf("remove matrix: %w", derr))
	}
	return err
}

// Load reads a model written by Save. Blobs left by different runs fail with
// domain.ErrStateMismatch.
func (s *Store) Load(ctx context.Context) (*Model, error) {
	var vp vectorizerPayload
	if err := s.get(ctx, VectorizerBlob, &vp); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	var mp matrixPayload
	if err := s.get(ctx, MatrixBlob, &mp); err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	if vp.Fingerprint == "" {
		return nil, fmt.Errorf("%w: artifacts carry no master fingerprint", domain.ErrStateMismatch)
	}
	if vp.Fingerprint != mp.Fingerprint {
		return nil, fmt.Errorf("%w: vectorizer and matrix were written by different runs", domain.ErrStateMismatch)
	}
	if mp.Matrix == nil {
		return nil, fmt.Errorf("%w: matrix blob is empty", ErrCorrupt)
	}
	vec, err := tfidf.FromState(vp.State)
	if err != nil {
		return nil, err
	}
	return &Model{Vectorizer: vec, Matrix: mp.Matrix, Fingerprint: vp.Fingerprint}, nil
}

func (s *Store) put(ctx context.Context, blob string, v any) error {
	data, err := Encode(v, s.codec)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, s.name(blob), data)
}

func (s *Store) get(ctx context.Context, blob string, v any) error {
	data, err := s.blobs.Get(ctx, s.name(blob))
	if err != nil {
		return err
	}
	return Decode(data, v)
}
