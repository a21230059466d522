package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stockpilot/stockpilot-go/internal/events"
	"github.com/stockpilot/stockpilot-go/internal/model"
	"github.com/stockpilot/stockpilot-go/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*model.User{}}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	return m.mutate(id, func(u *model.User) { u.LastLogin = &at })
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return m.mutate(id, func(u *model.User) { u.PasswordHash = hash })
}

func (m *memUsers) UpdateEmail(_ context.Context, id int64, email string) error {
	return m.mutate(id, func(u *model.User) { u.Email = email })
}

func (m *memUsers) mutate(id int64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

type memProducts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: map[int64]*model.Product{}}
}

func (m *memProducts) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.InternalCode == p.InternalCode {
			return repository.ErrDuplicateInternalCode
		}
		if existing.UserID == p.UserID && existing.Name == p.Name {
			return repository.ErrDuplicateProductName
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now().UTC().Add(time.Duration(m.nextID) * time.Second)
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) ListByUser(_ context.Context, userID int64, f model.ProductFilter) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for id := m.nextID; id > 0; id-- {
		p, ok := m.byID[id]
		if !ok || p.UserID != userID {
			continue
		}
		if !f.IncludeInactive && p.Inactive {
			continue
		}
		if f.Platform != "" && p.Platform != f.Platform {
			continue
		}
		if f.Search != "" && !strings.Contains(p.Name, f.Search) && !strings.Contains(p.InternalCode, f.Search) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) NameExists(_ context.Context, userID int64, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.UserID == userID && p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) InternalCodeExists(_ context.Context, code string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.InternalCode == code && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) Update(_ context.Context, userID, id int64, patch model.ProductPatch) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Cost != nil {
		p.Cost = *patch.Cost
	}
	if patch.Platform != nil {
		p.Platform = *patch.Platform
	}
	if patch.ImgURL != nil {
		p.ImgURL = *patch.ImgURL
	}
	if patch.InternalCode != nil {
		p.InternalCode = *patch.InternalCode
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) ToggleInactive(_ context.Context, userID, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrProductNotFound
	}
	p.Inactive = !p.Inactive
	cp := *p
	return &cp, nil
}

func (m *memProducts) Delete(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.UserID != userID {
		return repository.ErrProductNotFound
	}
	delete(m.byID, id)
	return nil
}

type memProfiles struct {
	mu     sync.Mutex
	nextID int64
	byUser map[int64]*model.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byUser: map[int64]*model.Profile{}}
}

func (m *memProfiles) GetByUserID(_ context.Context, userID int64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) UsernameTaken(_ context.Context, username string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, p := range m.byUser {
		if uid != userID && p.Username != nil && *p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProfiles) ApplyPatch(_ context.Context, userID int64, patch model.ProfilePatch) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		m.nextID++
		p = &model.Profile{ID: m.nextID, UserID: userID}
		m.byUser[userID] = p
	}
	set := func(dst **string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			*dst = nil
			return
		}
		s := *v
		*dst = &s
	}
	set(&p.Username, patch.Username)
	set(&p.AvatarURL, patch.AvatarURL)
	set(&p.Address, patch.Address)
	set(&p.Country, patch.Country)
	set(&p.PhoneNumber, patch.PhoneNumber)
	cp := *p
	return &cp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type memCache struct {
	mu          sync.Mutex
	entries     map[int64]*model.ReportSummary
	generations map[int64]int64
	invalidated []int64
}

func newMemCache() *memCache {
	return &memCache{
		entries:     map[int64]*model.ReportSummary{},
		generations: map[int64]int64{},
	}
}

func (c *memCache) Get(_ context.Context, userID int64) (*model.ReportSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[userID]
	return s, ok, nil
}

func (c *memCache) Generation(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID], nil
}

func (c *memCache) Set(_ context.Context, userID, generation int64, s *model.ReportSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return nil
	}
	c.entries[userID] = s
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.generations[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// modelProfilePatch builds a patch touching only the non-empty arguments.
func modelProfilePatch(username, phone, country string) model.ProfilePatch {
	var p model.ProfilePatch
	if username != "" {
		p.Username = strPtr(username)
	}
	if phone != "" {
		p.PhoneNumber = strPtr(phone)
	}
	if country != "" {
		p.Country = strPtr(country)
	}
	return p
}
