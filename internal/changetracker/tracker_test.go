package changetracker

import (
	"testing"
	"time"

	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRecentExcludesSelfAndInaccessible(t *testing.T) {
	tr := New()
	tr.Record(model.ChangeEntry{AgentID: "a1", FilesystemID: "fs1", Path: "/x", Operation: "write", Timestamp: time.Now()})
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/y", Operation: "write", Timestamp: time.Now()})
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs2", Path: "/z", Operation: "write", Timestamp: time.Now()})

	got := tr.Recent("a1", []string{"fs1"})
	assert.Len(t, got, 1)
	assert.Equal(t, "/y", got[0].Path)
}

func TestRecentMostRecentFirst(t *testing.T) {
	tr := New()
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/first", Timestamp: time.Now()})
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/second", Timestamp: time.Now()})

	got := tr.Recent("a1", []string{"fs1"})
	assert.Equal(t, "/second", got[0].Path)
	assert.Equal(t, "/first", got[1].Path)
}

func TestMaxEntriesBound(t *testing.T) {
	tr := New()
	for i := 0; i < MaxEntries+10; i++ {
		tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/p", Timestamp: time.Now()})
	}
	got := tr.Recent("a1", []string{"fs1"})
	assert.LessOrEqual(t, len(got), MaxEntries)
}

func TestMaxAgeBound(t *testing.T) {
	tr := New()
	old := time.Now().Add(-MaxAge - time.Minute)
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/old", Timestamp: old})
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/new", Timestamp: time.Now()})

	got := tr.Recent("a1", []string{"fs1"})
	assert.Len(t, got, 1)
	assert.Equal(t, "/new", got[0].Path)
}

func TestClearEmptiesLog(t *testing.T) {
	tr := New()
	tr.Record(model.ChangeEntry{AgentID: "a2", FilesystemID: "fs1", Path: "/p", Timestamp: time.Now()})
	tr.Clear()
	assert.Empty(t, tr.Recent("a1", []string{"fs1"}))
}

func TestSummaryEmptyWhenNoEntries(t *testing.T) {
	assert.Empty(t, Summary(nil))
}
