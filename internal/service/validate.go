package service

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sakif/ca-portal/internal/apperror"
)

// fromValidation converts an ozzo-validation result into a single
// apperror.ValidationFailed naming the first offending field (alphabetical,
// so the reported field is stable between runs).
//
// validation.Errors is keyed by the struct's json tag, so the field names
// match what the client sent.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	first := fields[0]
	return apperror.ValidationFailed(first, first+": "+errs[first].Error())
}
