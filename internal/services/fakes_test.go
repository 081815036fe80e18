package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"equipment-system/internal/entities"
	"equipment-system/internal/repositories"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"

	"github.com/jackc/pgx/v5"
)

// memDB backs every fake repository so the fake tx manager can roll back all of them.
type memDB struct {
	mu          sync.Mutex
	nextID      uint64
	equipments  map[uint64]entities.Equipment
	assignments map[uint64]entities.Assignment
	users       map[uint64]entities.User
	history     []entities.StatusHistory

	// beforeConditionalWrite runs inside the conditional equipment writes,
	// letting a test simulate a concurrent writer.
	beforeConditionalWrite func(db *memDB, id uint64)
}

func newMemDB() *memDB {
	return &memDB{
		equipments:  map[uint64]entities.Equipment{},
		assignments: map[uint64]entities.Assignment{},
		users:       map[uint64]entities.User{},
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func copyEquipment(e entities.Equipment) entities.Equipment {
	e.AssignmentHistory = append([]uint64{}, e.AssignmentHistory...)
	if e.AssignedTo != nil {
		v := *e.AssignedTo
		e.AssignedTo = &v
	}
	return e
}

type memSnapshot struct {
	nextID      uint64
	equipments  map[uint64]entities.Equipment
	assignments map[uint64]entities.Assignment
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{nextID: db.nextID, equipments: map[uint64]entities.Equipment{}, assignments: map[uint64]entities.Assignment{}}
	for k, v := range db.equipments {
		s.equipments[k] = copyEquipment(v)
	}
	for k, v := range db.assignments {
		s.assignments[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.equipments = s.equipments
	db.assignments = s.assignments
}

// equipment

type fakeEquipmentRepo struct{ db *memDB }

func (r *fakeEquipmentRepo) Create(_ context.Context, e *entities.Equipment) (*entities.Equipment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := copyEquipment(*e)
	stored.ID = r.db.id()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.db.equipments[stored.ID] = stored
	out := copyEquipment(stored)
	return &out, nil
}

func (r *fakeEquipmentRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Equipment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.equipments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := copyEquipment(e)
	return &out, nil
}

func (r *fakeEquipmentRepo) List(_ context.Context, filter types.Filter, q repositories.EquipmentQuery) ([]entities.Equipment, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	matched := make([]entities.Equipment, 0)
	for _, e := range r.db.equipments {
		if q.Status != nil && e.Status != *q.Status {
			continue
		}
		if q.Type != nil && e.Type != *q.Type {
			continue
		}
		if q.AssignedTo != nil && !e.IsAssignedTo(*q.AssignedTo) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, copyEquipment(e))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := uint64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *fakeEquipmentRepo) UpdateFields(_ context.Context, e *entities.Equipment) (*entities.Equipment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.equipments[e.ID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	stored.Name, stored.Brand, stored.ModelName = e.Name, e.Brand, e.ModelName
	stored.UpdatedAt = time.Now()
	r.db.equipments[e.ID] = stored
	out := copyEquipment(stored)
	return &out, nil
}

func (r *fakeEquipmentRepo) conditional(id uint64, expected entities.EquipmentStatus, apply func(e *entities.Equipment)) (*entities.Equipment, error) {
	if hook := r.db.beforeConditionalWrite; hook != nil {
		hook(r.db, id)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.equipments[id]
	if !ok || stored.Status != expected {
		return nil, apperrors.NewConflictError("equipment %d was modified concurrently", id)
	}
	apply(&stored)
	stored.UpdatedAt = time.Now()
	r.db.equipments[id] = stored
	out := copyEquipment(stored)
	return &out, nil
}

func (r *fakeEquipmentRepo) UpdateStatusIf(_ context.Context, _ pgx.Tx, id uint64, expected, newStatus entities.EquipmentStatus) (*entities.Equipment, error) {
	return r.conditional(id, expected, func(e *entities.Equipment) { e.Status = newStatus })
}

func (r *fakeEquipmentRepo) MarkAssigned(_ context.Context, _ pgx.Tx, id, userID, assignmentID uint64) (*entities.Equipment, error) {
	return r.conditional(id, entities.EquipmentStatusAvailable, func(e *entities.Equipment) {
		e.Status = entities.EquipmentStatusAssigned
		e.AssignedTo = &userID
		e.AssignmentHistory = append(e.AssignmentHistory, assignmentID)
	})
}

func (r *fakeEquipmentRepo) MarkReturned(_ context.Context, _ pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.conditional(id, entities.EquipmentStatusAssigned, func(e *entities.Equipment) {
		e.Status = entities.EquipmentStatusAvailable
		e.AssignedTo = nil
	})
}

func (r *fakeEquipmentRepo) DeleteUnlessAssigned(_ context.Context, id uint64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.equipments[id]
	if !ok || stored.Status == entities.EquipmentStatusAssigned {
		return false, nil
	}
	delete(r.db.equipments, id)
	return true, nil
}

// assignments

type fakeAssignmentRepo struct{ db *memDB }

func (r *fakeAssignmentRepo) Create(_ context.Context, _ pgx.Tx, a *entities.Assignment) (*entities.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.assignments {
		if existing.EquipmentID == a.EquipmentID && existing.IsActive() {
			return nil, apperrors.NewConflictError("equipment %d already has an active assignment", a.EquipmentID)
		}
	}
	stored := *a
	stored.ID = r.db.id()
	r.db.assignments[stored.ID] = stored
	return &stored, nil
}

func (r *fakeAssignmentRepo) FindActiveByEquipment(_ context.Context, _ pgx.Tx, equipmentID uint64) (*entities.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.assignments {
		if a.EquipmentID == equipmentID && a.IsActive() {
			out := a
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeAssignmentRepo) MarkReturned(_ context.Context, _ pgx.Tx, id uint64, returnNotes *string) (*entities.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.assignments[id]
	if !ok || !a.IsActive() {
		return nil, apperrors.NewConflictError("assignment %d is no longer active", id)
	}
	now := time.Now()
	a.Status = entities.AssignmentStatusReturned
	a.ReturnDate = &now
	a.ReturnNotes = returnNotes
	r.db.assignments[id] = a
	return &a, nil
}

func (r *fakeAssignmentRepo) MarkCancelled(_ context.Context, _ pgx.Tx, id uint64) (*entities.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.assignments[id]
	if !ok || !a.IsActive() {
		return nil, apperrors.NewConflictError("assignment %d is no longer active", id)
	}
	a.Status = entities.AssignmentStatusCancelled
	r.db.assignments[id] = a
	return &a, nil
}

func (r *fakeAssignmentRepo) ListByEquipment(_ context.Context, equipmentID uint64) ([]entities.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res := make([]entities.Assignment, 0)
	for _, a := range r.db.assignments {
		if a.EquipmentID == equipmentID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// users

type fakeUserRepo struct{ db *memDB }

func (r *fakeUserRepo) GetUsers(_ context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res := make([]entities.User, 0)
	for _, u := range r.db.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, uint64(len(res)), nil
}

func (r *fakeUserRepo) FindUserByID(_ context.Context, id uint64) (*entities.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *entities.User) (*entities.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, apperrors.ErrEmailTaken
		}
	}
	stored := *user
	stored.ID = r.db.id()
	r.db.users[stored.ID] = stored
	return &stored, nil
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, user *entities.User) (*entities.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	r.db.users[user.ID] = *user
	out := *user
	return &out, nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id uint64, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.IsActive = active
	r.db.users[id] = u
	return nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

// status history

type fakeStatusHistoryRepo struct{ db *memDB }

func (r *fakeStatusHistoryRepo) Create(_ context.Context, h *entities.StatusHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := *h
	stored.ID = r.db.id()
	r.db.history = append(r.db.history, stored)
	return nil
}

func (r *fakeStatusHistoryRepo) ListByEquipment(_ context.Context, equipmentID uint64) ([]entities.StatusHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res := make([]entities.StatusHistory, 0)
	for _, h := range r.db.history {
		if h.EquipmentID == equipmentID {
			res = append(res, h)
		}
	}
	return res, nil
}

// tx manager

type fakeTxManager struct{ db *memDB }

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	snap := m.db.snapshot()
	if err := fn(nil); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// cache

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	default:
		c.data[key] = ""
	}
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *fakeCache) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
