package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"keyport.io/keyport/internal/domain"
	"keyport.io/keyport/internal/repository"
)

// MemStore is an in-memory repository.Store for unit tests. It enforces the
// same unique and reference constraints as schema.sql. Transactions are
// serialized and roll back by restoring a snapshot.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memData

	// FailCreateCredential makes the n-th CreateCredential call (1-based) fail.
	FailCreateCredential int
	credentialCalls      int
}

type memData struct {
	nextID       int64
	users        []domain.User
	platforms    []domain.Platform
	integrations []domain.Integration
	credentials  []domain.CredentialDetail
	audit        []domain.AuditLog
}

func (d memData) clone() memData {
	return memData{
		nextID:       d.nextID,
		users:        slices.Clone(d.users),
		platforms:    slices.Clone(d.platforms),
		integrations: slices.Clone(d.integrations),
		credentials:  slices.Clone(d.credentials),
		audit:        slices.Clone(d.audit),
	}
}

var _ repository.Store = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

// ExecTx runs fn with all other transactions excluded.
func (s *MemStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports row counts, for assertions.
func (s *MemStore) Counts() (users, platforms, integrations, credentials int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.users), len(s.data.platforms), len(s.data.integrations), len(s.data.credentials)
}

// AuditLogs returns a copy of the audit rows.
func (s *MemStore) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.audit)
}

// SetCredentialSealedValue overwrites a stored ciphertext, to simulate corruption.
func (s *MemStore) SetCredentialSealedValue(id int64, sealed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.credentials {
		if s.data.credentials[i].ID == id {
			s.data.credentials[i].SealedValue = sealed
		}
	}
}

func (s *MemStore) CreateUser(_ context.Context, arg repository.CreateUserParams) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.Username == arg.Username {
			return domain.User{}, fmt.Errorf("%w: users_username_key", repository.ErrDuplicate)
		}
	}
	u := domain.User{
		ID:           s.id(),
		Username:     arg.Username,
		PasswordHash: arg.PasswordHash,
		IsAdmin:      arg.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	s.data.users = append(s.data.users, u)
	return u, nil
}

func (s *MemStore) GetUserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (s *MemStore) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (s *MemStore) ListUsers(_ context.Context, arg domain.UserListParams) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, u := range s.data.users {
		if arg.Username != nil && !containsFold(u.Username, *arg.Username) {
			continue
		}
		if arg.IsAdmin != nil && u.IsAdmin != *arg.IsAdmin {
			continue
		}
		out = append(out, u)
	}
	sortBy(out, arg.OrderBy, func(u domain.User, field string) any {
		switch field {
		case "username":
			return u.Username
		case "is_admin":
			return u.IsAdmin
		case "created_at":
			return u.CreatedAt
		}
		return u.ID
	}, func(u domain.User) int64 { return u.ID })
	return out, nil
}

func (s *MemStore) CreatePlatform(_ context.Context, arg repository.CreatePlatformParams) (domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Platform{
		ID:          s.id(),
		Name:        arg.Name,
		Description: arg.Description,
		CreatedAt:   time.Now().UTC(),
	}
	s.data.platforms = append(s.data.platforms, p)
	return p, nil
}

func (s *MemStore) GetPlatform(_ context.Context, id int64) (domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.platforms {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Platform{}, repository.ErrNotFound
}

func (s *MemStore) GetPlatformByName(_ context.Context, name string) (domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.platforms {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Platform{}, repository.ErrNotFound
}

func (s *MemStore) ListPlatforms(_ context.Context, arg domain.PlatformListParams) ([]domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterPlatforms(func(domain.Platform) bool { return true }, arg), nil
}

func (s *MemStore) ListPlatformsForUser(_ context.Context, userID int64, arg domain.PlatformListParams) ([]domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	linked := map[int64]bool{}
	for _, i := range s.data.integrations {
		if i.UserID == userID {
			linked[i.PlatformID] = true
		}
	}
	return s.filterPlatforms(func(p domain.Platform) bool { return linked[p.ID] }, arg), nil
}

func (s *MemStore) filterPlatforms(keep func(domain.Platform) bool, arg domain.PlatformListParams) []domain.Platform {
	var out []domain.Platform
	for _, p := range s.data.platforms {
		if !keep(p) {
			continue
		}
		if arg.Name != nil && !containsFold(p.Name, *arg.Name) {
			continue
		}
		if arg.Description != nil && (p.Description == nil || !containsFold(*p.Description, *arg.Description)) {
			continue
		}
		out = append(out, p)
	}
	sortBy(out, arg.OrderBy, func(p domain.Platform, field string) any {
		switch field {
		case "name":
			return p.Name
		case "created_at":
			return p.CreatedAt
		}
		return p.ID
	}, func(p domain.Platform) int64 { return p.ID })
	return out
}

func (s *MemStore) InsertIntegration(_ context.Context, arg repository.InsertIntegrationParams) (domain.Integration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasUser(arg.UserID) || !s.hasPlatform(arg.PlatformID) {
		return domain.Integration{}, false, fmt.Errorf("%w: user_integrations", repository.ErrReferenceMissing)
	}
	for _, i := range s.data.integrations {
		if i.UserID == arg.UserID && i.PlatformID == arg.PlatformID {
			return domain.Integration{}, false, nil
		}
	}
	now := time.Now().UTC()
	i := domain.Integration{
		ID:         s.id(),
		UserID:     arg.UserID,
		PlatformID: arg.PlatformID,
		IsActive:   arg.IsActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.data.integrations = append(s.data.integrations, i)
	return i, true, nil
}

func (s *MemStore) GetIntegration(_ context.Context, userID, platformID int64) (domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.data.integrations {
		if i.UserID == userID && i.PlatformID == platformID {
			return i, nil
		}
	}
	return domain.Integration{}, repository.ErrNotFound
}

func (s *MemStore) GetIntegrationByID(_ context.Context, id int64) (domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.data.integrations {
		if i.ID == id {
			return i, nil
		}
	}
	return domain.Integration{}, repository.ErrNotFound
}

func (s *MemStore) SetIntegrationActive(_ context.Context, id int64, active bool) (domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.data.integrations {
		if s.data.integrations[idx].ID == id {
			s.data.integrations[idx].IsActive = active
			s.data.integrations[idx].UpdatedAt = time.Now().UTC()
			return s.data.integrations[idx], nil
		}
	}
	return domain.Integration{}, repository.ErrNotFound
}

func (s *MemStore) ListIntegrations(_ context.Context, userID int64, arg domain.IntegrationListParams) ([]domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Integration
	for _, i := range s.data.integrations {
		if i.UserID != userID {
			continue
		}
		if arg.IsActive != nil && i.IsActive != *arg.IsActive {
			continue
		}
		if arg.PlatformID != nil && i.PlatformID != *arg.PlatformID {
			continue
		}
		out = append(out, i)
	}
	sortBy(out, arg.OrderBy, func(i domain.Integration, field string) any {
		switch field {
		case "platform_id":
			return i.PlatformID
		case "is_active":
			return i.IsActive
		case "created_at":
			return i.CreatedAt
		}
		return i.ID
	}, func(i domain.Integration) int64 { return i.ID })
	return out, nil
}

func (s *MemStore) CreateCredential(_ context.Context, arg repository.CreateCredentialParams) (domain.CredentialDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentialCalls++
	if s.FailCreateCredential > 0 && s.credentialCalls == s.FailCreateCredential {
		return domain.CredentialDetail{}, fmt.Errorf("injected failure on credential insert %d", s.credentialCalls)
	}
	for _, i := range s.data.integrations {
		if i.ID != arg.IntegrationID {
			continue
		}
		c := domain.CredentialDetail{
			ID:            s.id(),
			UserID:        i.UserID,
			PlatformID:    i.PlatformID,
			IntegrationID: i.ID,
			Key:           arg.Key,
			SealedValue:   arg.SealedValue,
			CreatedAt:     time.Now().UTC(),
		}
		s.data.credentials = append(s.data.credentials, c)
		return c, nil
	}
	return domain.CredentialDetail{}, repository.ErrNotFound
}

func (s *MemStore) ListCredentials(_ context.Context, arg domain.CredentialListParams) ([]domain.CredentialDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CredentialDetail
	for _, c := range s.data.credentials {
		if c.UserID != arg.UserID || c.PlatformID != arg.PlatformID {
			continue
		}
		if arg.Key != nil && c.Key != *arg.Key {
			continue
		}
		out = append(out, c)
	}
	sortBy(out, arg.OrderBy, func(c domain.CredentialDetail, field string) any {
		switch field {
		case "key":
			return c.Key
		case "created_at":
			return c.CreatedAt
		}
		return c.ID
	}, func(c domain.CredentialDetail) int64 { return c.ID })
	return out, nil
}

func (s *MemStore) ListCredentialsByIntegrations(_ context.Context, integrationIDs []int64) ([]domain.CredentialDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CredentialDetail
	for _, c := range s.data.credentials {
		if slices.Contains(integrationIDs, c.IntegrationID) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.CredentialDetail) int {
		if c := cmp.Compare(a.IntegrationID, b.IntegrationID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemStore) InsertAuditLog(_ context.Context, arg repository.InsertAuditLogParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.audit = append(s.data.audit, domain.AuditLog{
		ID:           s.id(),
		Action:       arg.Action,
		ResourceType: arg.ResourceType,
		ResourceID:   arg.ResourceID,
		Actor:        arg.Actor,
		Details:      arg.Details,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}

func (s *MemStore) DeleteAuditLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.data.audit)
	s.data.audit = slices.DeleteFunc(s.data.audit, func(a domain.AuditLog) bool {
		return a.CreatedAt.Before(cutoff)
	})
	return int64(before - len(s.data.audit)), nil
}

// BackdateAuditLogs shifts every audit row's timestamp by d.
func (s *MemStore) BackdateAuditLogs(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.audit {
		s.data.audit[i].CreatedAt = s.data.audit[i].CreatedAt.Add(-d)
	}
}

func (s *MemStore) hasUser(id int64) bool {
	return slices.ContainsFunc(s.data.users, func(u domain.User) bool { return u.ID == id })
}

func (s *MemStore) hasPlatform(id int64) bool {
	return slices.ContainsFunc(s.data.platforms, func(p domain.Platform) bool { return p.ID == id })
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortBy orders rows by the terms in order, then by id.
func sortBy[T any](rows []T, order domain.OrderBy, field func(T, string) any, id func(T) int64) {
	slices.SortStableFunc(rows, func(a, b T) int {
		for _, term := range order {
			c := compareAny(field(a, term.Field), field(b, term.Field))
			if term.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(id(a), id(b))
	})
}

func compareAny(a, b any) int {
	switch av := a.(type) {
	case string:
		return cmp.Compare(av, b.(string))
	case int64:
		return cmp.Compare(av, b.(int64))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}
