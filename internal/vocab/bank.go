package vocab

import (
	"log/slog"
	"sync"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/storage"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

// Bank is the deduplicated set of saved vocabulary entries, keyed by word.
// Insertion order defines display order. A lookup index is maintained
// incrementally alongside the ordered slice so Contains stays O(1) even
// for large banks.
type Bank struct {
	mu    sync.RWMutex
	items []tutor.VocabItem
	index map[string]struct{}

	kv     storage.KV
	logger *slog.Logger
}

// NewBank creates a vocabulary bank, loading any persisted entries from kv.
// A nil kv disables persistence; malformed persisted state loads as empty.
func NewBank(kv storage.KV, logger *slog.Logger) *Bank {
	b := &Bank{
		index:  make(map[string]struct{}),
		kv:     kv,
		logger: logger,
	}

	if kv != nil {
		var persisted []tutor.VocabItem
		if storage.LoadJSON(kv, logger, storage.KeySavedWords, &persisted) {
			for _, item := range persisted {
				if _, dup := b.index[item.Word]; dup {
					continue
				}
				b.items = append(b.items, item)
				b.index[item.Word] = struct{}{}
			}
			logger.Info("Loaded persisted vocabulary",
				slog.Int("count", len(b.items)),
			)
		}
	}

	return b
}

// Save appends item unless an entry with the same word already exists.
// Returns true when the item was added.
func (b *Bank) Save(item tutor.VocabItem) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[item.Word]; exists {
		return false
	}

	b.items = append(b.items, item)
	b.index[item.Word] = struct{}{}
	b.persistLocked()

	b.logger.Info("Saved vocabulary entry",
		slog.String("word", item.Word),
		slog.Int("bank_size", len(b.items)),
	)
	return true
}

// Remove deletes the entry with an exact word match. Removing an absent
// word is a no-op and returns false.
func (b *Bank) Remove(word string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[word]; !exists {
		return false
	}

	for i, item := range b.items {
		if item.Word == word {
			b.items = append(b.items[:i], b.items[i+1:]...)
			break
		}
	}
	delete(b.index, word)
	b.persistLocked()
	return true
}

// Contains reports whether a word is saved, via the maintained index.
func (b *Bank) Contains(word string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.index[word]
	return exists
}

// Items returns the saved entries in insertion order.
func (b *Bank) Items() []tutor.VocabItem {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]tutor.VocabItem, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of saved entries.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// persistLocked writes the bank through the storage collaborator. Callers
// must hold the lock.
func (b *Bank) persistLocked() {
	if b.kv == nil {
		return
	}
	if err := storage.SaveJSON(b.kv, storage.KeySavedWords, b.items); err != nil {
		b.logger.Warn("Failed to persist vocabulary",
			slog.String("error", err.Error()),
		)
	}
}
