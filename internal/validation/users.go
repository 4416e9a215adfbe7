package validation

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/octobees/usersapi/internal/entity"
)

// UpdatePayload is the normalized partial update accepted by PUT /api/users/:id.
// Nil fields were not supplied.
type UpdatePayload struct {
	Name     *string      `json:"name,omitempty" validate:"omitnil,min=1,max=255"`
	Email    *string      `json:"email,omitempty" validate:"omitnil,max=255,email,emaildomain"`
	Password *string      `json:"password,omitempty" validate:"omitnil,min=6,passwordbytes"`
	Role     *entity.Role `json:"role,omitempty" validate:"omitnil,oneof=regular admin"`
}

// Empty reports whether no recognized field was supplied.
func (p UpdatePayload) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.Role == nil
}

// ChangesRole reports whether the payload asks for a role change.
func (p UpdatePayload) ChangesRole() bool {
	return p.Role != nil
}

// Fields lists the supplied field names, for logging.
func (p UpdatePayload) Fields() []string {
	fields := make([]string, 0, 4)
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Password != nil {
		fields = append(fields, "password")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	return fields
}

// UserID validates a path identifier: a base-10 integer greater than zero.
func (v *Validator) UserID(raw string) (int64, Violations) {
	if err := v.validate.Var(raw, "required,number"); err != nil {
		return 0, toViolations(err, "id")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, Violations{{Field: "id", Rule: "gt", Param: "0", Message: "must be a positive integer"}}
	}
	return id, nil
}

// UpdateBody decodes a JSON object into an UpdatePayload. Unknown keys are
// dropped; known keys must hold strings satisfying the declared rules.
func (v *Validator) UpdateBody(body []byte) (UpdatePayload, Violations) {
	if len(bytes.TrimSpace(body)) == 0 {
		return UpdatePayload{}, nil
	}

	var input map[string]json.RawMessage
	if err := json.Unmarshal(body, &input); err != nil {
		return UpdatePayload{}, Violations{{Field: "body", Rule: "json", Message: "must be a JSON object"}}
	}

	var (
		payload    UpdatePayload
		violations Violations
	)
	for _, field := range []string{"name", "email", "password", "role"} {
		raw, ok := input[field]
		if !ok {
			continue
		}
		value, ok := decodeString(raw)
		if !ok {
			violations = append(violations, FieldError{Field: field, Rule: "type", Param: "string", Message: "must be a string"})
			continue
		}
		payload.set(field, value)
	}
	if violations.Failed() {
		return UpdatePayload{}, violations
	}

	if violations = v.Struct(payload); violations.Failed() {
		return UpdatePayload{}, violations
	}
	return payload, nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (p *UpdatePayload) set(field, value string) {
	switch field {
	case "name":
		trimmed := strings.TrimSpace(value)
		p.Name = &trimmed
	case "email":
		trimmed := strings.TrimSpace(value)
		p.Email = &trimmed
	case "password":
		p.Password = &value
	case "role":
		role := entity.Role(strings.TrimSpace(value))
		p.Role = &role
	}
}
