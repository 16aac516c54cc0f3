package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ict-ledger/interfaces"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags and folds failures into one ValidationError
func validateStruct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return interfaces.ValidationError(op, "%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return interfaces.ValidationError(op, "%s", strings.Join(msgs, "; "))
}

func validSession(s interfaces.Session) bool {
	switch s {
	case interfaces.SessionAsia, interfaces.SessionLondon, interfaces.SessionNYAM,
		interfaces.SessionNYLunch, interfaces.SessionNYPM, interfaces.SessionOffHours:
		return true
	}
	return false
}
