package dupindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-photocopy/photocopy/internal/model"
)

func TestRegisterFirstWins(t *testing.T) {
	idx := New()
	first := &model.FileRecord{SourcePath: "/a.jpg", Checksum: "abc"}
	second := &model.FileRecord{SourcePath: "/b.jpg", Checksum: "abc"}

	winner1, reg1 := idx.Register(first)
	winner2, reg2 := idx.Register(second)

	require.True(t, reg1)
	require.False(t, reg2)
	require.Same(t, first, winner1)
	require.Same(t, first, winner2)
}

func TestFindDuplicateNoChecksum(t *testing.T) {
	idx := New()
	require.Nil(t, idx.FindDuplicate(&model.FileRecord{SourcePath: "/a.jpg"}))
}

func TestFindDuplicateHit(t *testing.T) {
	idx := New()
	rec := &model.FileRecord{SourcePath: "/a.jpg", Checksum: "xyz"}
	idx.Register(rec)

	found := idx.FindDuplicate(&model.FileRecord{SourcePath: "/b.jpg", Checksum: "xyz"})
	require.Same(t, rec, found)
}

func TestClear(t *testing.T) {
	idx := New()
	rec := &model.FileRecord{SourcePath: "/a.jpg", Checksum: "xyz"}
	idx.Register(rec)
	idx.Clear()
	require.Nil(t, idx.FindDuplicate(&model.FileRecord{SourcePath: "/b.jpg", Checksum: "xyz"}))
}

func TestRegisterConcurrentOnlyOneWinner(t *testing.T) {
	idx := New()
	const n = 50
	records := make([]*model.FileRecord, n)
	for i := range records {
		records[i] = &model.FileRecord{SourcePath: "/dup.jpg", Checksum: "same"}
	}

	var wg sync.WaitGroup
	winners := make([]*model.FileRecord, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _ := idx.Register(records[i])
			winners[i] = w
		}(i)
	}
	wg.Wait()

	for _, w := range winners {
		require.Same(t, winners[0], w)
	}
}
