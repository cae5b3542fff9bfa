package checkpoint

import (
	"os"
	"sort"

	"github.com/typesweep/typesweep/internal/fsutil"
)

type indexFile struct {
	Seq     int     `json:"seq"`
	Stashes []Stash `json:"stashes"`
}

// SaveIndex persists the tracking index so separate invocations can share it.
func (m *Manager) SaveIndex(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := indexFile{Seq: m.seq, Stashes: make([]Stash, 0, len(m.stashes))}
	for _, st := range m.stashes {
		idx.Stashes = append(idx.Stashes, *st)
	}
	sort.Slice(idx.Stashes, func(i, j int) bool {
		return idx.Stashes[i].Timestamp.Before(idx.Stashes[j].Timestamp)
	})
	return fsutil.WriteJSON(path, idx)
}

// LoadIndex restores a previously saved tracking index. A missing file leaves
// the index empty.
func (m *Manager) LoadIndex(path string) error {
	var idx indexFile
	if err := fsutil.ReadJSON(path, &idx); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = idx.Seq
	m.stashes = make(map[string]*Stash, len(idx.Stashes))
	for i := range idx.Stashes {
		st := idx.Stashes[i]
		m.stashes[st.ID] = &st
	}
	return nil
}
