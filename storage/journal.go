package storage

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"arclend/core/events"
)

const (
	journalHeadKey   = "journal/head"
	journalKeyPrefix = "journal/"
)

// ErrChecksumMismatch marks a journal record whose stored checksum does not
// match its payload.
var ErrChecksumMismatch = fmt.Errorf("storage: journal checksum mismatch")

// JournalRecord is one persisted protocol event. Checksum covers the
// sequence, type, and attributes so tampering or partial writes surface on
// read.
type JournalRecord struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
	Checksum   string            `json:"checksum"`
}

// Journal is an append-only event log over a Database. It satisfies the
// events.Emitter interface so it can be wired as the ledger's commit sink.
type Journal struct {
	mu   sync.Mutex
	db   Database
	next uint64
	log  *slog.Logger
}

// NewJournal opens the journal, resuming the sequence from the stored head.
func NewJournal(db Database, logger *slog.Logger) (*Journal, error) {
	j := &Journal{db: db, next: 1, log: logger}
	if j.log == nil {
		j.log = slog.Default()
	}
	ok, err := db.Has([]byte(journalHeadKey))
	if err != nil {
		return nil, err
	}
	if ok {
		raw, err := db.Get([]byte(journalHeadKey))
		if err != nil {
			return nil, err
		}
		if len(raw) != 8 {
			return nil, fmt.Errorf("storage: corrupt journal head")
		}
		j.next = binary.BigEndian.Uint64(raw) + 1
	}
	return j, nil
}

// Emit appends the event, logging instead of failing the ledger commit when
// the write errors. The ledger has already committed by the time the sink
// runs, so the journal must not veto it.
func (j *Journal) Emit(evt events.Event) {
	if err := j.Append(evt); err != nil {
		j.log.Error("journal append failed", "type", evt.EventType(), "error", err)
	}
}

// Append persists the event under the next sequence number.
func (j *Journal) Append(evt events.Event) error {
	if evt == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rendered := evt.Event()
	record := JournalRecord{
		Seq:        j.next,
		Type:       rendered.Type,
		Attributes: rendered.Attributes,
		RecordedAt: time.Now().UTC(),
	}
	record.Checksum = checksum(record)

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := j.db.Put(journalKey(record.Seq), raw); err != nil {
		return err
	}
	head := make([]byte, 8)
	binary.BigEndian.PutUint64(head, record.Seq)
	if err := j.db.Put([]byte(journalHeadKey), head); err != nil {
		return err
	}
	j.next++
	return nil
}

// Len reports the number of persisted records.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next - 1
}

// Record loads and verifies one record by sequence number.
func (j *Journal) Record(seq uint64) (*JournalRecord, error) {
	raw, err := j.db.Get(journalKey(seq))
	if err != nil {
		return nil, err
	}
	record := &JournalRecord{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, err
	}
	if checksum(*record) != record.Checksum {
		return nil, ErrChecksumMismatch
	}
	return record, nil
}

// Replay walks every record in sequence order, stopping at the first error.
func (j *Journal) Replay(fn func(JournalRecord) error) error {
	last := j.Len()
	for seq := uint64(1); seq <= last; seq++ {
		record, err := j.Record(seq)
		if err != nil {
			return fmt.Errorf("record %d: %w", seq, err)
		}
		if err := fn(*record); err != nil {
			return err
		}
	}
	return nil
}

func journalKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", journalKeyPrefix, seq))
}

// checksum hashes the record's canonical form: sequence, type, and sorted
// attribute pairs. RecordedAt is excluded so clock precision cannot affect
// verification of replicated journals.
func checksum(record JournalRecord) string {
	keys := make([]string, 0, len(record.Attributes))
	for key := range record.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%s\n", record.Seq, record.Type)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, record.Attributes[key])
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
