package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"
	"equipment-system/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type statusChange struct {
	observer string
	id       uint64
	old, new entities.EquipmentStatus
	name     string
}

// recordingObserver appends to a log shared between observers so order is visible.
type recordingObserver struct {
	name string
	mu   *sync.Mutex
	log  *[]statusChange
	err  error
	boom bool
}

func (o *recordingObserver) Update(_ context.Context, id uint64, oldStatus, newStatus entities.EquipmentStatus, name string) error {
	o.mu.Lock()
	*o.log = append(*o.log, statusChange{observer: o.name, id: id, old: oldStatus, new: newStatus, name: name})
	o.mu.Unlock()
	if o.boom {
		panic("observer exploded")
	}
	return o.err
}

type EquipmentServiceSuite struct {
	suite.Suite
	ctx     context.Context
	db      *memDB
	cache   *fakeCache
	service *EquipmentService

	mu      sync.Mutex
	changes []statusChange
	first   *recordingObserver
	second  *recordingObserver

	admin entities.User
	user  entities.User
}

func TestEquipmentServiceSuite(t *testing.T) {
	suite.Run(t, new(EquipmentServiceSuite))
}

func (s *EquipmentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = newMemDB()
	s.cache = newFakeCache()
	s.changes = nil

	registry := NewObserverRegistry(zap.NewNop())
	s.first = &recordingObserver{name: "first", mu: &s.mu, log: &s.changes}
	s.second = &recordingObserver{name: "second", mu: &s.mu, log: &s.changes}
	registry.Attach(s.first)
	registry.Attach(s.second)

	s.service = NewEquipmentService(
		&fakeEquipmentRepo{db: s.db},
		&fakeAssignmentRepo{db: s.db},
		&fakeUserRepo{db: s.db},
		&fakeStatusHistoryRepo{db: s.db},
		s.cache,
		&fakeTxManager{db: s.db},
		NewEquipmentFactoryManager(),
		registry,
		time.Minute,
		zap.NewNop(),
	)

	users := &fakeUserRepo{db: s.db}
	admin, err := users.CreateUser(s.ctx, &entities.User{Name: "Admin", Email: "admin@example.com", Role: entities.UserRoleAdmin, IsActive: true})
	s.Require().NoError(err)
	user, err := users.CreateUser(s.ctx, &entities.User{Name: "User", Email: "user@example.com", Role: entities.UserRoleUser, IsActive: true})
	s.Require().NoError(err)
	s.admin, s.user = *admin, *user
}

func notes(s string) *string { return &s }

func (s *EquipmentServiceSuite) create(name string, t entities.EquipmentType) *dto.EquipmentDTO {
	res, err := s.service.CreateEquipment(s.ctx, dto.CreateEquipmentDTO{Name: name, Type: string(t), Brand: "Dell", ModelName: "XPS15"})
	s.Require().NoError(err)
	return res
}

func (s *EquipmentServiceSuite) activeAssignments(equipmentID uint64) int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, a := range s.db.assignments {
		if a.EquipmentID == equipmentID && a.IsActive() {
			n++
		}
	}
	return n
}

func (s *EquipmentServiceSuite) TestCreateEquipment() {
	res := s.create("  Dell XPS  ", entities.EquipmentTypeLaptop)
	s.Equal("Dell XPS", res.Name)
	s.Equal("laptop", res.Type)
	s.Equal("available", res.Status)
	s.Nil(res.AssignedTo)
	s.Empty(res.AssignmentHistory)

	_, err := s.service.CreateEquipment(s.ctx, dto.CreateEquipmentDTO{Name: "  ", Type: "laptop", Brand: "Dell", ModelName: "X"})
	var vErr *apperrors.ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Equal("name", vErr.Field)

	_, err = s.service.CreateEquipment(s.ctx, dto.CreateEquipmentDTO{Name: "Pad", Type: "tablet", Brand: "Apple", ModelName: "iPad"})
	s.ErrorIs(err, apperrors.ErrUnknownType)
}

func (s *EquipmentServiceSuite) TestAssignAndReturnScenario() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)

	assigned, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)
	s.Equal("assigned", assigned.Status)
	s.Require().NotNil(assigned.AssignedTo)
	s.Equal(s.user.ID, *assigned.AssignedTo)
	s.Len(assigned.AssignmentHistory, 1)
	s.Equal(1, s.activeAssignments(eq.ID))

	returned, err := s.service.ReturnEquipment(s.ctx, eq.ID, notes("ok"))
	s.Require().NoError(err)
	s.Equal("available", returned.Status)
	s.Nil(returned.AssignedTo)
	s.Len(returned.AssignmentHistory, 1)
	s.Equal(0, s.activeAssignments(eq.ID))

	history, err := s.service.GetEquipmentAssignments(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("returned", history[0].Status)
	s.Require().NotNil(history[0].ReturnDate)
	s.Equal("ok", utils.SafeDeref(history[0].ReturnNotes))
	s.Equal(s.admin.ID, history[0].AssignedBy)

	s.Equal([]statusChange{
		{"first", eq.ID, entities.EquipmentStatusAvailable, entities.EquipmentStatusAssigned, "Dell XPS"},
		{"second", eq.ID, entities.EquipmentStatusAvailable, entities.EquipmentStatusAssigned, "Dell XPS"},
		{"first", eq.ID, entities.EquipmentStatusAssigned, entities.EquipmentStatusAvailable, "Dell XPS"},
		{"second", eq.ID, entities.EquipmentStatusAssigned, entities.EquipmentStatusAvailable, "Dell XPS"},
	}, s.changes)
}

func (s *EquipmentServiceSuite) TestAssignmentHistoryGrowsAcrossLoans() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	for i := 0; i < 3; i++ {
		_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
		s.Require().NoError(err)
		_, err = s.service.ReturnEquipment(s.ctx, eq.ID, nil)
		s.Require().NoError(err)
	}
	found, err := s.service.FindEquipment(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Len(found.AssignmentHistory, 3)
}

func (s *EquipmentServiceSuite) TestAssignRequiresAvailable() {
	eq := s.create("Printer", entities.EquipmentTypePrinter)
	_, err := s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "maintenance")
	s.Require().NoError(err)
	s.changes = nil

	_, err = s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	var naErr *apperrors.NotAvailableError
	s.Require().ErrorAs(err, &naErr)
	s.Equal("maintenance", naErr.Status)

	after, err := s.service.FindEquipment(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Equal("maintenance", after.Status)
	s.Nil(after.AssignedTo)
	s.Empty(after.AssignmentHistory)
	s.Empty(s.changes)
	s.Equal(0, s.activeAssignments(eq.ID))
}

func (s *EquipmentServiceSuite) TestAssignValidatesTargetUser() {
	eq := s.create("Monitor", entities.EquipmentTypeMonitor)

	_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, 999, s.admin.ID, nil, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)

	s.Require().NoError((&fakeUserRepo{db: s.db}).SetActive(s.ctx, s.user.ID, false))
	_, err = s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.ErrorIs(err, apperrors.ErrValidation)

	past := time.Now().Add(-time.Hour)
	s.Require().NoError((&fakeUserRepo{db: s.db}).SetActive(s.ctx, s.user.ID, true))
	_, err = s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, &past)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.AssignEquipmentToUser(s.ctx, 12345, s.user.ID, s.admin.ID, nil, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EquipmentServiceSuite) TestReturnRequiresAssigned() {
	eq := s.create("Monitor", entities.EquipmentTypeMonitor)
	_, err := s.service.ReturnEquipment(s.ctx, eq.ID, nil)
	var naErr *apperrors.NotAssignedError
	s.Require().ErrorAs(err, &naErr)
	s.Equal("available", naErr.Status)
	s.Empty(s.changes)
}

func (s *EquipmentServiceSuite) TestReturnWithoutActiveAssignmentStillSucceeds() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)

	s.db.mu.Lock()
	for id := range s.db.assignments {
		delete(s.db.assignments, id)
	}
	s.db.mu.Unlock()

	res, err := s.service.ReturnEquipment(s.ctx, eq.ID, nil)
	s.Require().NoError(err)
	s.Equal("available", res.Status)
	s.Nil(res.AssignedTo)
}

func (s *EquipmentServiceSuite) TestUpdateEquipmentStatusRules() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)

	// same-status write on a non-assigned item succeeds and still notifies
	res, err := s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "available")
	s.Require().NoError(err)
	s.Equal("available", res.Status)
	s.Len(s.changes, 2)

	_, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "broken")
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.UpdateEquipmentStatus(s.ctx, 999, "maintenance")
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)
	s.changes = nil

	_, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "assigned")
	var itErr *apperrors.InvalidTransitionError
	s.Require().ErrorAs(err, &itErr)
	s.Equal("assigned", itErr.From)
	s.Empty(s.changes)

	// a direct move away from assigned keeps the assignment bookkeeping untouched
	res, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "available")
	s.Require().NoError(err)
	s.Equal("available", res.Status)
	s.Require().NotNil(res.AssignedTo)
	s.Equal(s.user.ID, *res.AssignedTo)
	s.Equal(1, s.activeAssignments(eq.ID))
	s.Equal([]statusChange{
		{"first", eq.ID, entities.EquipmentStatusAssigned, entities.EquipmentStatusAvailable, "Dell XPS"},
		{"second", eq.ID, entities.EquipmentStatusAssigned, entities.EquipmentStatusAvailable, "Dell XPS"},
	}, s.changes)
}

func (s *EquipmentServiceSuite) TestReassignAfterDirectReleaseCancelsStaleLoan() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)

	released, err := s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "available")
	s.Require().NoError(err)
	s.Equal("available", released.Status)
	s.Equal(1, s.activeAssignments(eq.ID))

	again, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.admin.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)
	s.Equal("assigned", again.Status)
	s.Require().NotNil(again.AssignedTo)
	s.Equal(s.admin.ID, *again.AssignedTo)
	s.Len(again.AssignmentHistory, 2)
	s.Equal(1, s.activeAssignments(eq.ID))

	history, err := s.service.GetEquipmentAssignments(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("active", history[0].Status)
	s.Equal(s.admin.ID, history[0].UserID)
	s.Equal("cancelled", history[1].Status)
	s.Equal(s.user.ID, history[1].UserID)
	s.Nil(history[1].ReturnDate)
}

func (s *EquipmentServiceSuite) TestPermittedDirectTransitions() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	for _, next := range []string{"maintenance", "available", "damaged", "retired", "available"} {
		res, err := s.service.UpdateEquipmentStatus(s.ctx, eq.ID, next)
		s.Require().NoError(err, next)
		s.Equal(next, res.Status)
	}
	s.Len(s.changes, 10)
}

func (s *EquipmentServiceSuite) TestConcurrentChangeIsReportedAsConflict() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	s.db.beforeConditionalWrite = func(db *memDB, id uint64) {
		db.mu.Lock()
		e := db.equipments[id]
		e.Status = entities.EquipmentStatusMaintenance
		db.equipments[id] = e
		db.mu.Unlock()
	}

	_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Empty(s.changes)
	s.db.beforeConditionalWrite = nil

	// the assignment insert was rolled back with the failed update
	s.Equal(0, s.activeAssignments(eq.ID))

	_, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "available")
	s.Require().NoError(err)
	s.db.beforeConditionalWrite = func(db *memDB, id uint64) {
		db.mu.Lock()
		e := db.equipments[id]
		e.Status = entities.EquipmentStatusRetired
		db.equipments[id] = e
		db.mu.Unlock()
	}
	_, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "maintenance")
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *EquipmentServiceSuite) TestDeleteEquipment() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	_, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)

	err = s.service.DeleteEquipment(s.ctx, eq.ID)
	s.ErrorIs(err, apperrors.ErrConflict)

	_, err = s.service.ReturnEquipment(s.ctx, eq.ID, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeleteEquipment(s.ctx, eq.ID))

	_, err = s.service.FindEquipment(s.ctx, eq.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.ErrorIs(s.service.DeleteEquipment(s.ctx, eq.ID), apperrors.ErrNotFound)
}

func (s *EquipmentServiceSuite) TestGetMyEquipmentById() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)

	res, err := s.service.GetMyEquipmentById(s.ctx, 999, s.user.ID)
	s.NoError(err)
	s.Nil(res)

	_, err = s.service.GetMyEquipmentById(s.ctx, eq.ID, s.user.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, nil, nil)
	s.Require().NoError(err)

	res, err = s.service.GetMyEquipmentById(s.ctx, eq.ID, s.user.ID)
	s.Require().NoError(err)
	s.Equal(eq.ID, res.ID)

	_, err = s.service.GetMyEquipmentById(s.ctx, eq.ID, s.admin.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	mine, err := s.service.GetMyEquipments(s.ctx, s.user.ID, types.Filter{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(1, mine.Total)
}

func (s *EquipmentServiceSuite) TestListsArePaginated() {
	for i := 0; i < 5; i++ {
		s.create("Laptop", entities.EquipmentTypeLaptop)
	}
	s.create("Screen", entities.EquipmentTypeMonitor)

	page, err := s.service.GetEquipments(s.ctx, types.Filter{Page: 2, Limit: 4, Offset: 4})
	s.Require().NoError(err)
	s.EqualValues(6, page.Total)
	s.Equal(2, page.TotalPages)
	s.Len(page.Items, 2)
	s.Equal(2, page.Page)

	byType, err := s.service.GetEquipmentsByType(s.ctx, "MONITOR", types.Filter{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(1, byType.Total)

	byStatus, err := s.service.GetEquipmentsByStatus(s.ctx, "available", types.Filter{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(6, byStatus.Total)

	_, err = s.service.GetEquipmentsByStatus(s.ctx, "lost", types.Filter{Page: 1, Limit: 10})
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.service.GetEquipmentsByType(s.ctx, "tablet", types.Filter{Page: 1, Limit: 10})
	s.ErrorIs(err, apperrors.ErrUnknownType)
}

func (s *EquipmentServiceSuite) TestUpdateEquipmentPatch() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)

	res, err := s.service.UpdateEquipment(s.ctx, eq.ID, dto.UpdateEquipmentDTO{Name: null.StringFrom("Dell XPS 2")})
	s.Require().NoError(err)
	s.Equal("Dell XPS 2", res.Name)
	s.Equal("Dell", res.Brand)
	s.Equal("XPS15", res.ModelName)
	s.Equal("available", res.Status)

	same, err := s.service.UpdateEquipment(s.ctx, eq.ID, dto.UpdateEquipmentDTO{})
	s.Require().NoError(err)
	s.Equal("Dell XPS 2", same.Name)

	_, err = s.service.UpdateEquipment(s.ctx, eq.ID, dto.UpdateEquipmentDTO{Brand: null.StringFrom("   ")})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.UpdateEquipment(s.ctx, 999, dto.UpdateEquipmentDTO{Name: null.StringFrom("x y")})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *EquipmentServiceSuite) TestFindEquipmentUsesCache() {
	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	key := EquipmentCacheKey(eq.ID)

	_, err := s.service.FindEquipment(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.True(s.cache.has(key))

	// served from cache even if the store changes underneath
	s.db.mu.Lock()
	e := s.db.equipments[eq.ID]
	e.Name = "changed behind the cache"
	s.db.equipments[eq.ID] = e
	s.db.mu.Unlock()
	cached, err := s.service.FindEquipment(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Equal("Dell XPS", cached.Name)

	_, err = s.service.UpdateEquipmentStatus(s.ctx, eq.ID, "maintenance")
	s.Require().NoError(err)
	s.False(s.cache.has(key))

	fresh, err := s.service.FindEquipment(s.ctx, eq.ID)
	s.Require().NoError(err)
	s.Equal("maintenance", fresh.Status)
	s.Equal("changed behind the cache", fresh.Name)
}

func (s *EquipmentServiceSuite) TestFailingObserversDoNotAbortTransition() {
	s.first.err = errors.New("notifier down")
	s.first.boom = true

	eq := s.create("Dell XPS", entities.EquipmentTypeLaptop)
	res, err := s.service.AssignEquipmentToUser(s.ctx, eq.ID, s.user.ID, s.admin.ID, notes("desk 4"), nil)
	s.Require().NoError(err)
	s.Equal("assigned", res.Status)
	s.Len(s.changes, 2)
	s.Equal("second", s.changes[1].observer)
}

func TestEquipmentCacheKey(t *testing.T) {
	assert.Equal(t, "equipment:42", EquipmentCacheKey(42))
	require.NotEqual(t, EquipmentCacheKey(1), EquipmentCacheKey(11))
}
