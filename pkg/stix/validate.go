package stix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// SpecVersion is the STIX version the classifier was written against.
const SpecVersion = "2.1"

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(validateHeader, objectHeader{})
}

// objectHeader holds the common properties every STIX object must carry.
type objectHeader struct {
	Type string `validate:"required"`
	ID   string `validate:"required"`
}

// validateHeader checks the id is "<type>--<uuid>".
func validateHeader(sl validator.StructLevel) {
	h := sl.Current().Interface().(objectHeader)
	if h.ID == "" || h.Type == "" {
		return
	}
	prefix, suffix, ok := strings.Cut(h.ID, "--")
	if !ok || prefix != h.Type {
		sl.ReportError(h.ID, "ID", "ID", "idprefix", h.Type)
		return
	}
	if _, err := uuid.Parse(suffix); err != nil {
		sl.ReportError(h.ID, "ID", "ID", "iduuid", "")
	}
}

// Validate classifies a raw bundle. It returns nil, a *model.ValidationError
// when nothing should be built, or a *model.ValidationWarning when the graph
// can still be built.
func Validate(raw []byte) error {
	b, err := Decode(raw)
	if err != nil {
		return &model.ValidationError{Field: "bundle", Reason: err.Error()}
	}
	if err := validate.Struct(b); err != nil {
		return formatValidationError("bundle", err)
	}
	if err := validate.Struct(objectHeader{Type: b.Type, ID: b.ID}); err != nil {
		return formatValidationError("bundle", err)
	}

	ids := make(map[string]bool, len(b.Objects))
	for i, obj := range b.Objects {
		h := objectHeader{Type: obj.String("type"), ID: obj.String("id")}
		if err := validate.Struct(h); err != nil {
			return formatValidationError(fmt.Sprintf("objects[%d]", i), err)
		}
		if ids[h.ID] {
			return &model.ValidationError{Field: fmt.Sprintf("objects[%d].id", i), Reason: fmt.Sprintf("duplicate id %s", h.ID)}
		}
		ids[h.ID] = true
	}

	return warnings(b, ids)
}

// warnings returns the first semantic problem found, in a fixed order.
func warnings(b *Bundle, ids map[string]bool) error {
	groupings := 0
	for i, obj := range b.Objects {
		typ := obj.String("type")
		if metaTypes[typ] {
			continue
		}
		if v := obj.String("spec_version"); v != "" && v != SpecVersion {
			return &model.ValidationWarning{
				Field:  fmt.Sprintf("objects[%d].spec_version", i),
				Reason: fmt.Sprintf("expected %s, got %s", SpecVersion, v),
			}
		}
		switch typ {
		case TypeGrouping:
			groupings++
			if _, ok := Created(&model.Node{Data: obj}); !ok {
				return &model.ValidationWarning{
					Field:  fmt.Sprintf("objects[%d].created", i),
					Reason: "grouping has no valid created timestamp",
				}
			}
		case TypeRelationship:
			for _, ref := range []string{"source_ref", "target_ref"} {
				if id := obj.String(ref); !ids[id] {
					return &model.ValidationWarning{
						Field:  fmt.Sprintf("objects[%d].%s", i, ref),
						Reason: fmt.Sprintf("references unknown object %q", id),
					}
				}
			}
		}
	}
	if groupings == 0 {
		return &model.ValidationWarning{Field: "objects", Reason: "bundle has no grouping, the activity thread will be empty"}
	}
	return nil
}

func formatValidationError(scope string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: scope, Reason: err.Error()}
	}
	e := verrs[0]
	field := scope + "." + strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return &model.ValidationError{Field: field, Reason: "field is required"}
	case "eq":
		return &model.ValidationError{Field: field, Reason: fmt.Sprintf("must be %q", e.Param())}
	case "idprefix":
		return &model.ValidationError{Field: field, Reason: fmt.Sprintf("must start with %q", e.Param()+"--")}
	case "iduuid":
		return &model.ValidationError{Field: field, Reason: "suffix is not a UUID"}
	default:
		return &model.ValidationError{Field: field, Reason: fmt.Sprintf("validation failed (%s)", e.Tag())}
	}
}
