package customvalidator

import (
	"reflect"
	"strings"

	"equipment-system/internal/entities"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidations registers the project-specific rules on v.
func RegisterCustomValidations(v *validator.Validate) error {
	registerNullTypes(v)

	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation("equipment_type", isEquipmentType); err != nil {
		return err
	}
	if err := v.RegisterValidation("equipment_status", isEquipmentStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("user_role", isUserRole); err != nil {
		return err
	}
	return nil
}

func stringValue(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return field.String(), true
	case reflect.Ptr:
		if field.IsNil() {
			return "", false
		}
		return field.Elem().String(), true
	}
	return "", false
}

func isNotBlank(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return ok && strings.TrimSpace(s) != ""
}

// Unknown types pass here; the factory manager owns the type decision and
// answers with UnknownTypeError.
func isEquipmentType(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return ok && strings.TrimSpace(s) != ""
}

func isEquipmentStatus(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return ok && entities.EquipmentStatus(s).Valid()
}

func isUserRole(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return ok && entities.UserRole(s).Valid()
}

// registerNullTypes lets tags on null.* fields see the wrapped value; an
// unset field validates as nil so omitempty applies.
func registerNullTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.String); ok && val.Valid {
			return val.String
		}
		return nil
	}, null.String{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.Time); ok && val.Valid {
			return val.Time
		}
		return nil
	}, null.Time{})
}
