package services

import (
	"strings"

	"equipment-system/internal/entities"
	apperrors "equipment-system/pkg/errors"
)

// EquipmentCreationData is the type-independent payload a factory validates.
type EquipmentCreationData struct {
	Name      string
	Brand     string
	ModelName string
}

type EquipmentFactory interface {
	Create(data EquipmentCreationData) (*entities.Equipment, error)
}

func validateCreationData(data EquipmentCreationData) (EquipmentCreationData, error) {
	data.Name = strings.TrimSpace(data.Name)
	data.Brand = strings.TrimSpace(data.Brand)
	data.ModelName = strings.TrimSpace(data.ModelName)

	if data.Name == "" {
		return data, apperrors.NewValidationError("name", "name is required")
	}
	if data.Brand == "" {
		return data, apperrors.NewValidationError("brand", "brand is required")
	}
	if data.ModelName == "" {
		return data, apperrors.NewValidationError("model_name", "model name is required")
	}
	return data, nil
}

func newEquipment(t entities.EquipmentType, data EquipmentCreationData) (*entities.Equipment, error) {
	data, err := validateCreationData(data)
	if err != nil {
		return nil, err
	}
	return &entities.Equipment{
		Name:              data.Name,
		Type:              t,
		Brand:             data.Brand,
		ModelName:         data.ModelName,
		Status:            entities.EquipmentStatusAvailable,
		AssignmentHistory: []uint64{},
	}, nil
}

type LaptopFactory struct{}

func (LaptopFactory) Create(data EquipmentCreationData) (*entities.Equipment, error) {
	return newEquipment(entities.EquipmentTypeLaptop, data)
}

type MonitorFactory struct{}

func (MonitorFactory) Create(data EquipmentCreationData) (*entities.Equipment, error) {
	return newEquipment(entities.EquipmentTypeMonitor, data)
}

type PrinterFactory struct{}

func (PrinterFactory) Create(data EquipmentCreationData) (*entities.Equipment, error) {
	return newEquipment(entities.EquipmentTypePrinter, data)
}

// EquipmentFactoryManager dispatches on a closed type map. There is no fallback
// factory: an unmapped type is an error.
type EquipmentFactoryManager struct {
	factories map[entities.EquipmentType]EquipmentFactory
}

func NewEquipmentFactoryManager() *EquipmentFactoryManager {
	return &EquipmentFactoryManager{
		factories: map[entities.EquipmentType]EquipmentFactory{
			entities.EquipmentTypeLaptop:  LaptopFactory{},
			entities.EquipmentTypeMonitor: MonitorFactory{},
			entities.EquipmentTypePrinter: PrinterFactory{},
		},
	}
}

func (m *EquipmentFactoryManager) GetFactory(t entities.EquipmentType) (EquipmentFactory, error) {
	f, ok := m.factories[t]
	if !ok {
		return nil, &apperrors.UnknownTypeError{Type: string(t)}
	}
	return f, nil
}

func (m *EquipmentFactoryManager) CreateEquipment(t entities.EquipmentType, data EquipmentCreationData) (*entities.Equipment, error) {
	f, err := m.GetFactory(t)
	if err != nil {
		return nil, err
	}
	return f.Create(data)
}

// Validate reports the first equipment type without a factory. Run at startup.
func (m *EquipmentFactoryManager) Validate() error {
	for _, t := range entities.AllEquipmentTypes() {
		if _, ok := m.factories[t]; !ok {
			return &apperrors.UnknownTypeError{Type: string(t)}
		}
	}
	return nil
}
