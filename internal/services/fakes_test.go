package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/events"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/repositories"
)

// fakeCollaboratorStore mirrors the documented store contract in memory:
// one logical row per (contract, user), last-owner protection inside
// Deactivate and UpdateRole, transactional semantics inside Transfer.
type fakeCollaboratorStore struct {
	mu   sync.Mutex
	rows map[string]*models.Collaborator

	// failTransfer simulates a mid-transaction failure: the call errors
	// and no row changes, as a rolled-back transaction would behave.
	failTransfer error
	seq          int
}

func newFakeCollaboratorStore() *fakeCollaboratorStore {
	return &fakeCollaboratorStore{rows: make(map[string]*models.Collaborator)}
}

func (f *fakeCollaboratorStore) key(contractID, userID uuid.UUID) string {
	return contractID.String() + "_" + userID.String()
}

func (f *fakeCollaboratorStore) Get(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok {
		return nil, apperr.NotFound("collaborator not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) GetActive(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok || !c.Active {
		return nil, apperr.NotFound("collaborator not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) Insert(ctx context.Context, c *models.Collaborator) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(c.ContractID, c.UserID)
	if _, exists := f.rows[k]; exists {
		return nil, apperr.Conflict("user is already a collaborator on this contract")
	}
	f.seq++
	stored := *c
	stored.Active = true
	stored.CreatedAt = time.Unix(int64(f.seq), 0)
	stored.UpdatedAt = stored.CreatedAt
	f.rows[k] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeCollaboratorStore) Reactivate(ctx context.Context, contractID, userID uuid.UUID, role models.Role, addedBy *uuid.UUID, note *string) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok || c.Active {
		return nil, apperr.NotFound("no inactive collaborator row to reactivate")
	}
	c.Role = role
	c.Active = true
	c.AddedBy = addedBy
	c.Note = note
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) UpdateRole(ctx context.Context, contractID, userID uuid.UUID, role models.Role) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok || !c.Active {
		return nil, apperr.NotFound("collaborator not found")
	}
	if c.Role == models.RoleOwner && role != models.RoleOwner && f.countOwnersLocked(contractID) <= 1 {
		return nil, apperr.BadRequest("cannot demote the last owner of a contract")
	}
	c.Role = role
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) UpdateGrants(ctx context.Context, contractID, userID uuid.UUID, canExport, canManage bool) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok || !c.Active {
		return nil, apperr.NotFound("collaborator not found")
	}
	c.CanExport = canExport
	c.CanManageCollaborators = canManage
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) Deactivate(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[f.key(contractID, userID)]
	if !ok || !c.Active {
		return nil, apperr.NotFound("collaborator not found")
	}
	if c.Role == models.RoleOwner && f.countOwnersLocked(contractID) <= 1 {
		return nil, apperr.BadRequest("cannot remove the last owner of a contract")
	}
	c.Active = false
	cp := *c
	return &cp, nil
}

func (f *fakeCollaboratorStore) Transfer(ctx context.Context, contractID, fromUserID, toUserID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransfer != nil {
		return f.failTransfer
	}
	from, ok := f.rows[f.key(contractID, fromUserID)]
	if !ok || !from.Active {
		return apperr.NotFound("current owner is not an active collaborator")
	}
	if from.Role != models.RoleOwner {
		return apperr.BadRequest("transfer source is not an owner of this contract")
	}
	to, ok := f.rows[f.key(contractID, toUserID)]
	if !ok || !to.Active {
		return apperr.NotFound("transfer target is not an active collaborator on this contract")
	}
	from.Role = models.RoleViewer
	to.Role = models.RoleOwner
	return nil
}

func (f *fakeCollaboratorStore) ListActive(ctx context.Context, contractID uuid.UUID) ([]models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Collaborator
	for _, c := range f.rows {
		if c.ContractID == contractID && c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCollaboratorStore) CountActiveOwners(ctx context.Context, contractID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countOwnersLocked(contractID), nil
}

func (f *fakeCollaboratorStore) countOwnersLocked(contractID uuid.UUID) int {
	n := 0
	for _, c := range f.rows {
		if c.ContractID == contractID && c.Active && c.Role == models.RoleOwner {
			n++
		}
	}
	return n
}

// rowCount reports physical rows for one contract, active or not.
func (f *fakeCollaboratorStore) rowCount(contractID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.rows {
		if c.ContractID == contractID {
			n++
		}
	}
	return n
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
	failErr error
}

func (f *fakeAuditStore) Insert(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	stored := *e
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.entries = append(f.entries, stored)
	return &stored, nil
}

func (f *fakeAuditStore) Search(ctx context.Context, filter repositories.AuditFilter) ([]models.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditLogEntry
	for _, e := range f.entries {
		if filter.ContractID != nil && (e.ContractID == nil || *e.ContractID != *filter.ContractID) {
			continue
		}
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditStore) SummaryByAction(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range f.entries {
		if contractID != nil && (e.ContractID == nil || *e.ContractID != *contractID) {
			continue
		}
		counts[e.Action]++
	}
	var out []models.AuditSummaryRow
	for action, n := range counts {
		out = append(out, models.AuditSummaryRow{Action: action, Count: n})
	}
	return out, nil
}

func (f *fakeAuditStore) SummaryByUser(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[uuid.UUID]int64{}
	for _, e := range f.entries {
		if e.UserID == nil {
			continue
		}
		if contractID != nil && (e.ContractID == nil || *e.ContractID != *contractID) {
			continue
		}
		counts[*e.UserID]++
	}
	var out []models.AuditSummaryRow
	for userID, n := range counts {
		id := userID
		out = append(out, models.AuditSummaryRow{UserID: &id, Count: n})
	}
	return out, nil
}

func (f *fakeAuditStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.AuditLogEntry
	var deleted int64
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePublisher struct {
	mu      sync.Mutex
	events  []events.Event
	failErr error
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.events = append(f.events, e)
	return nil
}

type fakeContractStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*models.Contract
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[uuid.UUID]*models.Contract)}
}

func (f *fakeContractStore) Create(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *c
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.contracts[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return nil, apperr.NotFound("contract not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContractStore) Update(ctx context.Context, id uuid.UUID, title, status *string, isPublic *bool, description *string) (*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return nil, apperr.NotFound("contract not found")
	}
	if title != nil {
		c.Title = *title
	}
	if status != nil {
		c.Status = *status
	}
	if isPublic != nil {
		c.IsPublic = *isPublic
	}
	if description != nil {
		c.Description = description
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *fakeContractStore) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Contract
	for _, c := range f.contracts {
		if c.CreatedBy == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeContractFlags struct {
	public map[uuid.UUID]bool
}

func (f *fakeContractFlags) IsPublic(ctx context.Context, id uuid.UUID) (bool, error) {
	isPublic, ok := f.public[id]
	if !ok {
		return false, apperr.NotFound("contract not found")
	}
	return isPublic, nil
}
