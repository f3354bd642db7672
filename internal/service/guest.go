package service

import (
	"strings"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// normalizeGuest trims guest fields, lower-cases the email and rejects a
// blank name or an unparsable email.
func normalizeGuest(g model.Guest) (model.Guest, error) {
	out := model.Guest{
		Name:  strings.TrimSpace(g.Name),
		Email: strings.ToLower(strings.TrimSpace(g.Email)),
		Phone: trimmed(g.Phone),
	}
	if out.Name == "" {
		return model.Guest{}, invalidArgument("guest name is required")
	}
	if out.Email == "" {
		return model.Guest{}, invalidArgument("guest email is required")
	}
	if err := validate.Var(out.Email, "email"); err != nil {
		return model.Guest{}, invalidArgument("guest email %q is not a valid email address", out.Email)
	}
	if len(out.Name) > 200 {
		return model.Guest{}, invalidArgument("guest name is too long")
	}
	return out, nil
}
