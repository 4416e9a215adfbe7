package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/auth"
	middlewarepkg "github.com/octobees/usersapi/internal/middleware"
	"github.com/octobees/usersapi/internal/policy"
	"github.com/octobees/usersapi/internal/validation"
)

const maxBodyBytes = 1 << 20

// halt short-circuits a pipeline with a finished response.
type halt struct {
	status int
	body   any
}

// exchange is the state accumulated by the steps of one request.
type exchange struct {
	c        echo.Context
	caller   auth.Identity
	targetID int64
	payload  validation.UpdatePayload
}

type step struct {
	name string
	run  func(x *exchange) *halt
}

// runSteps executes steps in order. The first halt is written as the response;
// otherwise final produces it.
func runSteps(c echo.Context, logger zerolog.Logger, steps []step, final func(x *exchange) error) error {
	x := &exchange{c: c}
	for _, s := range steps {
		if h := s.run(x); h != nil {
			logger.Debug().
				Str("step", s.name).
				Int("status", h.status).
				Str("request_id", middlewarepkg.RequestIDFromContext(c)).
				Msg("request halted")
			return c.JSON(h.status, h.body)
		}
	}
	return final(x)
}

// authenticateStep resolves the caller from the identity set by
// middleware.Identify, or verifies the request token directly.
func authenticateStep(verifier middlewarepkg.Verifier, cookieName string) step {
	return step{name: "authenticate", run: func(x *exchange) *halt {
		if identity, ok := middlewarepkg.IdentityFromContext(x.c); ok {
			x.caller = identity
			return nil
		}

		raw := middlewarepkg.TokenFromRequest(x.c.Request(), cookieName)
		if raw == "" {
			return &halt{http.StatusUnauthorized, ErrorResponse{Error: labelUnauthorized, Message: "Authentication required"}}
		}
		identity, err := verifier.Verify(raw)
		if err != nil {
			return &halt{http.StatusUnauthorized, ErrorResponse{Error: labelUnauthorized, Message: "Invalid or expired token"}}
		}
		x.caller = identity
		return nil
	}}
}

func validateIDStep(v *validation.Validator) step {
	return step{name: "validate_params", run: func(x *exchange) *halt {
		id, violations := v.UserID(x.c.Param("id"))
		if violations.Failed() {
			return &halt{http.StatusBadRequest, validationBody(violations)}
		}
		x.targetID = id
		return nil
	}}
}

func validateBodyStep(v *validation.Validator) step {
	return step{name: "validate_body", run: func(x *exchange) *halt {
		body, err := io.ReadAll(io.LimitReader(x.c.Request().Body, maxBodyBytes+1))
		if err != nil {
			return &halt{http.StatusBadRequest, ErrorResponse{Error: labelValidation, Message: "Unable to read request body"}}
		}
		if len(body) > maxBodyBytes {
			return &halt{http.StatusBadRequest, ErrorResponse{Error: labelValidation, Message: "Request body too large"}}
		}

		payload, violations := v.UpdateBody(body)
		if violations.Failed() {
			return &halt{http.StatusBadRequest, validationBody(violations)}
		}
		x.payload = payload
		return nil
	}}
}

func requireChangesStep() step {
	return step{name: "require_changes", run: func(x *exchange) *halt {
		if x.payload.Empty() {
			return &halt{http.StatusBadRequest, ErrorResponse{Error: labelValidation, Message: "At least one field must be provided for update"}}
		}
		return nil
	}}
}

func authorizeStep(decide func(x *exchange) policy.Decision) step {
	return step{name: "authorize", run: func(x *exchange) *halt {
		if d := decide(x); !d.Allowed {
			return &halt{http.StatusForbidden, ErrorResponse{Error: labelForbidden, Message: d.Message}}
		}
		return nil
	}}
}
