package engine

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/stationops/assetcycle/pkg/api"
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// checkStruct runs the struct tags and converts the first violation into
// the engine's ValidationError so callers never see validator internals.
func checkStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return &api.ValidationError{Field: f.Field(), Reason: "failed " + f.Tag() + " check"}
	}
	return err
}

func requireField(name, value string) error {
	if value == "" {
		return &api.ValidationError{Field: name, Reason: "must not be empty"}
	}
	return nil
}
