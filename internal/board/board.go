// Package board holds the accumulated project list of one interactive
// session and the batch processor that fills it.
package board

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/raine/mural-table-bot/internal/mural"
)

var ErrNoSuchRow = errors.New("no such row")

// Entry is a record together with its position on the board.
type Entry struct {
	Index  int
	Record mural.Record
}

// Board is an insertion-ordered list of records. Rows have no identity
// beyond their position. It is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	records []mural.Record
}

func New() *Board {
	return &Board{}
}

// Append adds records at the end of the board.
func (b *Board) Append(records ...mural.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range records {
		b.records = append(b.records, r.Clone())
	}
}

// Records returns a copy of the board contents. Callers may modify it
// freely.
func (b *Board) Records() []mural.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]mural.Record, len(b.records))
	for i, r := range b.records {
		out[i] = r.Clone()
	}
	return out
}

// Entries returns the records with their positions in board order.
func (b *Board) Entries() []Entry {
	records := b.Records()
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = Entry{Index: i, Record: r}
	}
	return entries
}

// SortedEntries returns the entries ordered by date, undated last.
func (b *Board) SortedEntries() []Entry {
	entries := b.Entries()
	slices.SortStableFunc(entries, func(x, y Entry) int {
		return mural.CompareByDate(x.Record, y.Record)
	})
	return entries
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Get returns a copy of the record at index.
func (b *Board) Get(index int) (mural.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.records) {
		return mural.Record{}, fmt.Errorf("%w: %d", ErrNoSuchRow, index+1)
	}
	return b.records[index].Clone(), nil
}

// Clear removes every record.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
}

// Remove deletes the record at index, shifting later rows up.
func (b *Board) Remove(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.records) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, index+1)
	}
	b.records = slices.Delete(b.records, index, index+1)
	return nil
}

// Update sets one column of the record at index. The record is left
// unchanged when the value is rejected.
func (b *Board) Update(index int, column, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.records) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, index+1)
	}
	rec := b.records[index].Clone()
	if err := rec.Set(column, value); err != nil {
		return err
	}
	b.records[index] = rec
	return nil
}

// Replace swaps the record at index for r.
func (b *Board) Replace(index int, r mural.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.records) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, index+1)
	}
	b.records[index] = r.Clone()
	return nil
}
