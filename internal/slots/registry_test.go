package slots

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseintake/internal/models"
)

func TestNewRegistryLayout(t *testing.T) {
	r := NewRegistry()
	snap := r.Snapshot()
	require.Len(t, snap, models.SlotCount)

	assert.Equal(t, "img1", snap[0].Key)
	assert.Equal(t, "img11", snap[10].Key)
	assert.Equal(t, "model1", snap[11].Key)
	assert.Equal(t, "model2", snap[12].Key)
	for i, s := range snap {
		assert.Equal(t, i, s.Index)
		assert.True(t, s.Empty())
		assert.Zero(t, s.Progress)
		if i < models.ImageSlotCount {
			assert.Equal(t, models.SlotKindImage, s.Kind)
		} else {
			assert.Equal(t, models.SlotKindModel, s.Kind)
		}
	}
}

func TestInvalidIndex(t *testing.T) {
	r := NewRegistry()
	for _, i := range []int{-1, models.SlotCount, 100} {
		_, err := r.Get(i)
		assert.True(t, errors.Is(err, ErrInvalidSlot))
		assert.True(t, errors.Is(r.Begin(i), ErrInvalidSlot))
		assert.True(t, errors.Is(r.Clear(i), ErrInvalidSlot))
	}
}

func TestTransferLifecycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Begin(3))

	err := r.Begin(3)
	assert.True(t, errors.Is(err, ErrSlotBusy))

	v, changed := r.SetProgress(3, 40)
	assert.True(t, changed)
	assert.Equal(t, 40.0, v)

	v, changed = r.SetProgress(3, 25)
	assert.False(t, changed, "progress must not move backwards")
	assert.Equal(t, 40.0, v)

	v, _ = r.SetProgress(3, 250)
	assert.Equal(t, 100.0, v)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.Complete(3, "https://cdn.example/a.png", "patients/x-a.png", at))

	s, err := r.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", s.RemoteURL)
	assert.Equal(t, "patients/x-a.png", s.StorageKey)
	assert.Equal(t, 100.0, s.Progress)
	assert.False(t, s.InFlight)
	require.NotNil(t, s.UploadedAt)
	assert.Equal(t, at, *s.UploadedAt)

	assert.True(t, errors.Is(r.Begin(3), ErrSlotInUse))

	require.NoError(t, r.Clear(3))
	s, _ = r.Get(3)
	assert.True(t, s.Empty())
	assert.Zero(t, s.Progress)
	assert.Nil(t, s.UploadedAt)
}

func TestFailResetsProgress(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Begin(12))
	r.SetProgress(12, 70)
	r.Fail(12)

	s, _ := r.Get(12)
	assert.True(t, s.Empty())
	assert.Zero(t, s.Progress)
	assert.False(t, s.InFlight)
	assert.NoError(t, r.Begin(12), "slot can be retried after a failure")
}

func TestProgressIgnoredWhenIdle(t *testing.T) {
	r := NewRegistry()
	_, changed := r.SetProgress(0, 50)
	assert.False(t, changed)
	s, _ := r.Get(0)
	assert.Zero(t, s.Progress)
}

func TestSlotsAreIndependent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < models.SlotCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Begin(i))
			for p := 1; p <= 100; p++ {
				r.SetProgress(i, float64(p))
			}
			if i%2 == 0 {
				assert.NoError(t, r.Complete(i, "u", "k", time.Now()))
			} else {
				r.Fail(i)
			}
		}(i)
	}
	wg.Wait()

	for i, s := range r.Snapshot() {
		if i%2 == 0 {
			assert.False(t, s.Empty(), "slot %d", i)
		} else {
			assert.True(t, s.Empty(), "slot %d", i)
		}
	}
}

func TestFilesAndSeed(t *testing.T) {
	r := NewRegistry()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.Begin(0))
	require.NoError(t, r.Complete(0, "https://cdn.example/0.jpg", "patients/0.jpg", at))

	files := r.Files()
	for i := range files {
		if i == 0 {
			require.Len(t, files[i], 1)
			assert.Equal(t, "patients/0.jpg", files[i][0].FileKey)
			assert.Equal(t, at, files[i][0].UploadedAt)
			continue
		}
		assert.NotNil(t, files[i])
		assert.Empty(t, files[i])
	}

	other := NewRegistry()
	other.SeedFiles(files)
	assert.Equal(t, r.Snapshot(), other.Snapshot())
}

func TestRestoreDropsInFlight(t *testing.T) {
	at := time.Now().UTC()
	saved := []models.UploadSlot{
		{Index: 1, RemoteURL: "u1", StorageKey: "k1", UploadedAt: &at},
		{Index: 2, InFlight: true, Progress: 40},
		{Index: 99, RemoteURL: "ignored"},
	}
	r := NewRegistry()
	r.Restore(saved)

	s1, _ := r.Get(1)
	assert.Equal(t, "u1", s1.RemoteURL)
	assert.Equal(t, 100.0, s1.Progress)

	s2, _ := r.Get(2)
	assert.True(t, s2.Empty())
	assert.False(t, s2.InFlight)
	assert.Zero(t, s2.Progress)
}
