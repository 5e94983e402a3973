package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projects(ids ...string) []project.Project {
	out := make([]project.Project, len(ids))
	for i, id := range ids {
		out[i] = project.Project{ID: id, Sequence: int64(i)}
	}
	return out
}

func TestStore_PublishReplacesWholesale(t *testing.T) {
	s := NewStore()
	require.Equal(t, 0, s.Current().Len())

	require.True(t, s.Publish(1, projects("a", "b")))
	first := s.Current()

	require.True(t, s.Publish(2, projects("c")))
	require.Equal(t, 2, first.Len(), "old snapshot is untouched")
	require.Equal(t, 1, s.Current().Len())

	_, ok := s.Find("a")
	require.False(t, ok)
	p, ok := s.Find("c")
	require.True(t, ok)
	require.Equal(t, "c", p.ID)
}

func TestStore_RejectsStaleVersions(t *testing.T) {
	s := NewStore()
	require.True(t, s.Publish(5, projects("new")))
	require.False(t, s.Publish(4, projects("old")))
	require.False(t, s.Publish(5, projects("same")))
	require.Equal(t, uint64(5), s.Current().Version)
	_, ok := s.Find("new")
	require.True(t, ok)
}

func TestStore_DedupesFirstWins(t *testing.T) {
	s := NewStore()
	in := projects("a", "b", "a")
	in[2].Sequence = 99
	s.Publish(1, in)

	got := s.Projects()
	require.Len(t, got, 2)
	p, _ := s.Find("a")
	require.Equal(t, int64(0), p.Sequence)
}

func TestStore_PublishCopiesInput(t *testing.T) {
	s := NewStore()
	in := projects("a")
	s.Publish(1, in)
	in[0].ID = "mutated"

	_, ok := s.Find("a")
	require.True(t, ok)

	out := s.Projects()
	out[0].ID = "mutated"
	_, ok = s.Find("a")
	require.True(t, ok)
}

func TestStore_ReadersCannotMutateNestedSlices(t *testing.T) {
	s := NewStore()
	in := project.Project{
		ID:                "a",
		Metadata:          project.Metadata{Tags: []string{"robotics"}},
		Outputs:           []project.Output{{Tools: project.Tools{OtherTools: []string{"gdb"}}}},
		Reproducibilities: []proof.Reproducibility{{ProofID: "p1"}},
		Ownership:         []token.Ownership{{TokenID: "1", Owner: token.ZeroAddress}},
	}
	s.Publish(1, []project.Project{in})
	in.Reproducibilities[0].Valid = true

	got, ok := s.Find("a")
	require.True(t, ok)
	require.False(t, got.Reproducibilities[0].Valid)

	got.Reproducibilities[0].Valid = true
	got.Metadata.Tags[0] = "x"
	got.Outputs[0].Tools.OtherTools[0] = "x"
	got.Ownership[0].Units = 99
	s.Projects()[0].Reproducibilities[0].Dispute = true

	again, _ := s.Find("a")
	require.False(t, again.Reproducibilities[0].Valid)
	require.False(t, again.Reproducibilities[0].Dispute)
	require.Equal(t, "robotics", again.Metadata.Tags[0])
	require.Equal(t, "gdb", again.Outputs[0].Tools.OtherTools[0])
	require.Zero(t, again.Ownership[0].Units)
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := uint64(1); v <= 200; v++ {
			// Every snapshot v holds exactly v%5+1 projects.
			ids := make([]string, v%5+1)
			for i := range ids {
				ids[i] = fmt.Sprintf("p%d-%d", v, i)
			}
			s.Publish(v, projects(ids...))
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				snap := s.Current()
				if snap.Version == 0 {
					continue
				}
				assert.Equal(t, int(snap.Version%5+1), snap.Len())
			}
		}()
	}
	wg.Wait()
}
