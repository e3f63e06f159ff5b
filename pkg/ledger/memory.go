package ledger

import (
	"context"
	"sync"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// MemoryLedger is an in-process account map. Safe for concurrent use.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[pda.PublicKey][]byte
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[pda.PublicKey][]byte)}
}

func (m *MemoryLedger) FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.accounts[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores raw account data at addr.
func (m *MemoryLedger) Put(addr pda.PublicKey, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.accounts[addr] = cp
	m.mu.Unlock()
}

// PutRecord stores rec at its derived incident address, setting rec.Bump
// to the canonical bump first.
func (m *MemoryLedger) PutRecord(programID pda.PublicKey, rec *record.OnChainRecord) (pda.PublicKey, error) {
	addr, bump, err := pda.DeriveIncidentAnchor(programID, rec.IncidentID)
	if err != nil {
		return pda.PublicKey{}, err
	}
	rec.Bump = bump
	data, err := record.Encode(rec)
	if err != nil {
		return pda.PublicKey{}, err
	}
	m.Put(addr, data)
	return addr, nil
}

func (m *MemoryLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
