package geojson

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// ErrSchemaValidation is returned, wrapped in a *SchemaValidationError, when a
// document does not satisfy the zone schema.
var ErrSchemaValidation = errors.New("venue document failed schema validation")

// FieldIssue is one schema violation.
type FieldIssue struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// SchemaValidationError collects every schema violation in a document.
type SchemaValidationError struct {
	Issues []FieldIssue
}

func (e *SchemaValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrSchemaValidation.Error()
	}
	msgs := make([]string, 0, min(len(e.Issues), 5))
	for i, issue := range e.Issues {
		if i == 5 {
			break
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	suffix := ""
	if len(e.Issues) > 5 {
		suffix = fmt.Sprintf(" (and %d more)", len(e.Issues)-5)
	}
	return fmt.Sprintf("%s: %s%s", ErrSchemaValidation.Error(), strings.Join(msgs, "; "), suffix)
}

func (e *SchemaValidationError) Unwrap() error {
	return ErrSchemaValidation
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "position", validatePosition)
		mustRegister(v, "closed", validateClosedRing)
		mustRegister(v, "zone_type", func(fl validator.FieldLevel) bool {
			return types.ZoneType(fl.Field().String()).IsValid()
		})
		mustRegister(v, "security_level", func(fl validator.FieldLevel) bool {
			return types.SecurityLevel(fl.Field().String()).IsValid()
		})
		mustRegister(v, "access_level", func(fl validator.FieldLevel) bool {
			return types.AccessLevel(fl.Field().String()).IsValid()
		})
		mustRegister(v, "infrastructure_type", func(fl validator.FieldLevel) bool {
			return types.InfrastructureType(fl.Field().String()).IsValid()
		})
		mustRegister(v, "incident_type", func(fl validator.FieldLevel) bool {
			return types.IncidentType(fl.Field().String()).IsValid()
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("geojson: register %s validation: %v", tag, err))
	}
}

// validatePosition accepts a [lon, lat] pair (optionally with altitude)
// inside WGS84 bounds.
func validatePosition(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Len() < 2 || field.Len() > 3 {
		return false
	}
	lon, lat := field.Index(0).Float(), field.Index(1).Float()
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func validateClosedRing(fl validator.FieldLevel) bool {
	ring, ok := fl.Field().Interface().(types.Ring)
	if !ok {
		return false
	}
	return ring.IsClosed()
}

// Validate checks doc against the zone schema and the collection invariants.
// It returns a *SchemaValidationError listing every violation.
func Validate(doc *Document) error {
	var issues []FieldIssue
	if err := getValidator().Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		for _, fe := range verrs {
			issues = append(issues, FieldIssue{
				Field:   trimNamespace(fe.Namespace()),
				Tag:     fe.Tag(),
				Message: formatFieldError(fe),
			})
		}
	}

	seen := make(map[string]int, len(doc.Features))
	for i, f := range doc.Features {
		id := f.Properties.ID
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("features[%d].properties.id", i),
				Tag:     "unique",
				Message: fmt.Sprintf("duplicate zone id %q (first seen at features[%d])", id, first),
			})
			continue
		}
		seen[id] = i
	}

	if len(issues) > 0 {
		return &SchemaValidationError{Issues: issues}
	}
	return nil
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "eq":
		return fmt.Sprintf("must be %q", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s elements", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "position":
		return "must be a [longitude, latitude] pair within WGS84 bounds"
	case "closed":
		return "ring must start and end at the same position"
	case "zone_type", "security_level", "access_level", "infrastructure_type", "incident_type":
		return fmt.Sprintf("unknown %s %q", strings.ReplaceAll(fe.Tag(), "_", " "), fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
