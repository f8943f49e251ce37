package storage

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"arclend/core/events"
)

func sampleEvent(n int64) events.Event {
	return events.Deposited{
		Account: common.HexToAddress("0x5a"),
		Asset:   common.HexToAddress("0xd0"),
		Amount:  big.NewInt(n),
	}
}

func TestJournalAppendAndReplay(t *testing.T) {
	db := NewMemDB()
	j, err := NewJournal(db, nil)
	require.NoError(t, err)

	require.NoError(t, j.Append(sampleEvent(1)))
	require.NoError(t, j.Append(sampleEvent(2)))
	require.EqualValues(t, 2, j.Len())

	var seen []uint64
	require.NoError(t, j.Replay(func(r JournalRecord) error {
		seen = append(seen, r.Seq)
		require.Equal(t, events.TypeDeposited, r.Type)
		return nil
	}))
	require.Equal(t, []uint64{1, 2}, seen)
}

func TestJournalResumesSequence(t *testing.T) {
	db := NewMemDB()
	j, err := NewJournal(db, nil)
	require.NoError(t, err)
	require.NoError(t, j.Append(sampleEvent(1)))

	// Reopening over the same database continues where the first left off.
	reopened, err := NewJournal(db, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, reopened.Len())
	require.NoError(t, reopened.Append(sampleEvent(2)))

	record, err := reopened.Record(2)
	require.NoError(t, err)
	require.Equal(t, "2", record.Attributes["amount"])
}

func TestJournalDetectsTampering(t *testing.T) {
	db := NewMemDB()
	j, err := NewJournal(db, nil)
	require.NoError(t, err)
	require.NoError(t, j.Append(sampleEvent(1)))

	raw, err := db.Get(journalKey(1))
	require.NoError(t, err)
	// Flip the recorded amount from 1 to 9.
	tampered := strings.Replace(string(raw), `"amount":"1"`, `"amount":"9"`, 1)
	require.NotEqual(t, string(raw), tampered)
	require.NoError(t, db.Put(journalKey(1), []byte(tampered)))

	_, err = j.Record(1)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
