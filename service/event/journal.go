package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
)

// Journal persists event envelopes as one JSON document per event under a
// base URL, so a simulation run can be replayed or inspected after the
// process exits. Sequence-prefixed names keep listing order equal to append
// order.
type Journal[T any] struct {
	fs      afs.Service
	baseURL string

	mu  sync.Mutex
	seq int
}

// NewJournal creates a journal rooted at baseURL, creating the location when
// it does not exist.
func NewJournal[T any](fs afs.Service, baseURL string) (*Journal[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("journal base URL cannot be empty")
	}
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create journal location %s: %w", baseURL, err)
		}
	}
	return &Journal[T]{fs: fs, baseURL: baseURL}, nil
}

// Append writes the event to the journal.
func (j *Journal[T]) Append(ctx context.Context, event *Event[T]) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %v: %w", event.ID, err)
	}
	j.mu.Lock()
	seq := j.seq
	j.seq++
	j.mu.Unlock()
	URL := path.Join(j.baseURL, fmt.Sprintf("%09d-%s.json", seq, event.ID))
	if err = j.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to append event %v: %w", event.ID, err)
	}
	return nil
}

// Replay reads back every journalled event in append order.
func (j *Journal[T]) Replay(ctx context.Context) ([]*Event[T], error) {
	objects, err := j.fs.List(ctx, j.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal %s: %w", j.baseURL, err)
	}
	var files []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			files = append(files, object)
		}
	}
	sort.Slice(files, func(i, k int) bool { return files[i].Name() < files[k].Name() })

	events := make([]*Event[T], 0, len(files))
	for _, object := range files {
		data, dErr := j.fs.DownloadWithURL(ctx, object.URL())
		if dErr != nil {
			return nil, fmt.Errorf("failed to read journal entry %s: %w", object.URL(), dErr)
		}
		entry := &Event[T]{}
		if err = json.Unmarshal(data, entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %s: %w", object.URL(), err)
		}
		events = append(events, entry)
	}
	return events, nil
}
