package repo

import (
	"context"
	"sync"
	"time"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/pkg/tool"
	"github.com/fatflowers/reconciler/pkg/types"
)

// MemoryRepository is an in-memory Repository for tests. It mirrors the
// storage-level guarantees the gorm implementation gets from postgres: the
// conditional status update is atomic under the mutex, and ledger inserts
// are keyed on (target_kind, external_ref).
//
// Call counters and the Fail* hooks let tests instrument lookups and inject
// storage failures.
type MemoryRepository struct {
	mu sync.Mutex

	candidates map[string]*models.Candidate
	rosters    map[string]*models.TeamRosterEntry
	entries    map[string]*models.PaymentLedgerEntry
	deposits   map[string]*models.PayoutDeposit

	GetCandidateCalls   int
	GetRosterEntryCalls int

	FailLedgerInsert error
	FailBackfill     error
	FailDeposit      error
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		candidates: map[string]*models.Candidate{},
		rosters:    map[string]*models.TeamRosterEntry{},
		entries:    map[string]*models.PaymentLedgerEntry{},
		deposits:   map[string]*models.PayoutDeposit{},
	}
}

func ledgerKey(kind types.TargetKind, externalRef string) string {
	return string(kind) + "|" + externalRef
}

// PutCandidate seeds a candidate.
func (m *MemoryRepository) PutCandidate(c *models.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.candidates[c.ID] = &cp
}

// PutRosterEntry seeds a roster entry.
func (m *MemoryRepository) PutRosterEntry(e *models.TeamRosterEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.rosters[e.ID] = &cp
}

// LedgerEntryCount reports how many ledger entries exist.
func (m *MemoryRepository) LedgerEntryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryRepository) GetCandidate(_ context.Context, id string) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCandidateCalls++
	c, ok := m.candidates[id]
	if !ok {
		return nil, &notFoundError{what: "candidate " + id}
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) GetRosterEntry(_ context.Context, userID, weekendID string) (*models.TeamRosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetRosterEntryCalls++
	for _, e := range m.rosters {
		if e.UserID == userID && e.WeekendID == weekendID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, &notFoundError{what: "roster entry for user " + userID}
}

func (m *MemoryRepository) UpdateCandidateStatus(_ context.Context, id string, expected, next models.CandidateStatus) (StatusUpdateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return StatusUpdateConflict, &notFoundError{what: "candidate " + id}
	}
	switch c.Status {
	case expected:
		c.Status = next
		return StatusUpdateApplied, nil
	case next:
		return StatusUpdateAlreadyApplied, nil
	default:
		return StatusUpdateConflict, nil
	}
}

func (m *MemoryRepository) UpdateRosterEntryStatus(_ context.Context, id string, expected, next models.RosterStatus) (StatusUpdateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rosters[id]
	if !ok {
		return StatusUpdateConflict, &notFoundError{what: "roster entry " + id}
	}
	switch e.Status {
	case expected:
		e.Status = next
		return StatusUpdateApplied, nil
	case next:
		return StatusUpdateAlreadyApplied, nil
	default:
		return StatusUpdateConflict, nil
	}
}

func (m *MemoryRepository) InsertLedgerEntryIfAbsent(_ context.Context, entry *models.PaymentLedgerEntry) (bool, *models.PaymentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLedgerInsert != nil {
		return false, nil, m.FailLedgerInsert
	}
	key := ledgerKey(entry.TargetKind, entry.ExternalRef)
	if existing, ok := m.entries[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	cp := *entry
	m.entries[key] = &cp
	out := cp
	return true, &out, nil
}

func (m *MemoryRepository) FindLedgerEntryByExternalRef(_ context.Context, kind types.TargetKind, externalRef string) (*models.PaymentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ledgerKey(kind, externalRef)]
	if !ok {
		return nil, &notFoundError{what: "ledger entry " + externalRef}
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryRepository) FindLedgerEntriesByExternalRef(_ context.Context, externalRef string) ([]*models.PaymentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PaymentLedgerEntry
	for _, e := range m.entries {
		if e.ExternalRef == externalRef {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) BackfillLedgerEntry(_ context.Context, id string, fees FeeBackfill) (*models.PaymentLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBackfill != nil {
		return nil, m.FailBackfill
	}
	for _, e := range m.entries {
		if e.ID == id {
			e.ChargeID = &fees.ChargeID
			e.BalanceTransactionID = &fees.BalanceTransactionID
			e.StripeFeeCents = &fees.StripeFeeCents
			e.NetAmountCents = &fees.NetAmountCents
			if fees.PayoutID != nil {
				e.PayoutID = fees.PayoutID
			}
			cp := *e
			return &cp, nil
		}
	}
	return nil, &notFoundError{what: "ledger entry " + id}
}

func (m *MemoryRepository) InsertPayoutDepositIfAbsent(_ context.Context, deposit *models.PayoutDeposit) (bool, *models.PayoutDeposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeposit != nil {
		return false, nil, m.FailDeposit
	}
	if existing, ok := m.deposits[deposit.PayoutID]; ok {
		cp := *existing
		return false, &cp, nil
	}
	if deposit.ID == "" {
		deposit.ID = tool.GenerateUUIDV7()
	}
	cp := *deposit
	m.deposits[deposit.PayoutID] = &cp
	out := cp
	return true, &out, nil
}

func (m *MemoryRepository) CountLedgerEntriesForPayout(_ context.Context, payoutID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.entries {
		if e.PayoutID != nil && *e.PayoutID == payoutID {
			n++
		}
	}
	return n, nil
}
