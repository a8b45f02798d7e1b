package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"caseintake/internal/apiclient"
	"caseintake/internal/intake"
	"caseintake/internal/models"
	"caseintake/internal/storage"
	"caseintake/internal/upload"
)

func TestParseSlotFiles(t *testing.T) {
	files, err := parseSlotFiles([]string{"0=front.png", "img2=side.JPG", "model2=lower.stl"})
	require.NoError(t, err)
	assert.Equal(t, []slotFile{
		{slot: 0, path: "front.png"},
		{slot: 1, path: "side.JPG"},
		{slot: 12, path: "lower.stl"},
	}, files)

	for _, args := range [][]string{
		{"front.png"},
		{"img12=front.png"},
		{"13=front.png"},
		{"img1="},
		{"model1=scan.png"},
		{"0=a.png", "img1=b.png"},
	} {
		_, err := parseSlotFiles(args)
		assert.Error(t, err, "%v", args)
	}
}

// casePatients serves one stored case and records updates to it.
type casePatients struct {
	updateErr error
	updates   atomic.Int32
}

func (p *casePatients) CreatePatient(context.Context, string, models.PatientCaseRecord) (apiclient.Created, error) {
	return apiclient.Created{}, errors.New("unexpected create")
}

func (p *casePatients) UpdatePatient(context.Context, string, string, models.PatientCaseRecord) error {
	p.updates.Add(1)
	return p.updateErr
}

func (p *casePatients) GetPatient(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{"_id":"p-1","caseType":"Double Arch","caseCategory":"X","selectedPrice":"P1","userId":"doc1"}`), nil
}

type noCategories struct{}

func (noCategories) CaseCategories(context.Context, string, string) ([]models.CaseCategoryOption, error) {
	return nil, nil
}

// refusingStore fails writes of objects whose name ends in suffix.
type refusingStore struct {
	*storage.Bucket
	suffix string
}

func (r refusingStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if strings.HasSuffix(key, r.suffix) {
		return errors.New("write refused")
	}
	return r.Bucket.Upload(ctx, key, contentType, body)
}

func writeFiles(t *testing.T, names ...string) []slotFile {
	t.Helper()
	dir := t.TempDir()
	out := make([]slotFile, 0, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 512)), 0o600))
		out = append(out, slotFile{slot: i, path: path})
	}
	return out
}

func countObjects(t *testing.T, b *blob.Bucket) int {
	t.Helper()
	n := 0
	it := b.List(nil)
	for {
		_, err := it.Next(context.Background())
		if err == io.EOF {
			return n
		}
		require.NoError(t, err)
		n++
	}
}

func TestUploadSlots(t *testing.T) {
	tests := []struct {
		name      string
		refuse    string
		updateErr error
		wantErr   bool
		objects   int
		updates   int32
	}{
		{name: "all stored and saved", objects: 2, updates: 1},
		{name: "one upload fails", refuse: "-b.png", wantErr: true},
		{name: "save fails", updateErr: &apiclient.APIError{Status: http.StatusBadGateway, Message: "down"}, wantErr: true, updates: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := memblob.OpenBucket(nil)
			defer mem.Close()
			var store upload.Store = storage.New(mem, "https://cdn.example.com")
			if tt.refuse != "" {
				store = refusingStore{Bucket: storage.New(mem, "https://cdn.example.com"), suffix: tt.refuse}
			}
			patients := &casePatients{updateErr: tt.updateErr}
			m := intake.NewManager(patients, noCategories{}, upload.New(store, "patients", zerolog.Nop()), zerolog.Nop())
			defer m.Wait()

			s, err := m.Create(ctx, "tok", "p-1")
			require.NoError(t, err)

			err = uploadSlots(ctx, s, "tok", writeFiles(t, "a.png", "b.png"), m.Wait)
			if tt.wantErr {
				require.Error(t, err)
				for _, slot := range s.Slots()[:2] {
					assert.True(t, slot.Empty(), slot.Key)
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.objects, countObjects(t, mem))
			assert.Equal(t, tt.updates, patients.updates.Load())
		})
	}
}
