package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/requestctx"
	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/services"
)

type errorMapping struct {
	target  error
	code    string
	message string
	status  int
}

var serviceErrorMappings = []errorMapping{
	{services.ErrConfigurationMissing, "pricing_unavailable", "no tariff has been published", http.StatusServiceUnavailable},
	{services.ErrRepositoryUnavailable, "service_unavailable", "storage temporarily unavailable", http.StatusServiceUnavailable},
	{services.ErrZoneNotFound, "zone_not_found", "zone not found", http.StatusNotFound},
	{services.ErrOrderNotFound, "order_not_found", "order not found", http.StatusNotFound},
	{services.ErrTicketNotFound, "ticket_not_found", "ticket not found", http.StatusNotFound},
	{services.ErrRateConfigConflict, "rate_config_conflict", "tariff was changed by someone else", http.StatusConflict},
	{services.ErrZoneConflict, "zone_conflict", "a zone with this name already exists", http.StatusConflict},
	{services.ErrZoneInUse, "zone_in_use", "zone is referenced by orders", http.StatusConflict},
	{services.ErrOrderConflict, "order_conflict", "order was modified concurrently", http.StatusConflict},
	{services.ErrOrderInvalidState, "order_invalid_state", "order cannot move to the requested status", http.StatusConflict},
	{services.ErrTicketInvalidState, "ticket_invalid_state", "ticket cannot move to the requested status", http.StatusConflict},
}

var invalidInputSentinels = []error{
	pricing.ErrInvalidInput,
	services.ErrRateConfigInvalidInput,
	services.ErrZoneInvalidInput,
	services.ErrOrderInvalidInput,
	services.ErrTicketInvalidInput,
}

// writeServiceError maps service sentinels onto the JSON error envelope. Validation failures carry
// the offending field.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	for _, sentinel := range invalidInputSentinels {
		if errors.Is(err, sentinel) {
			apiErr := httpx.NewError("invalid_input", err.Error(), http.StatusBadRequest)
			if field := invalidField(err); field != "" {
				apiErr = apiErr.WithDetail("field", field)
			}
			httpx.WriteError(ctx, w, apiErr)
			return
		}
	}
	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			if mapping.status >= http.StatusInternalServerError {
				requestctx.Logger(ctx).Warn("dependency unavailable", zap.Error(err))
			}
			httpx.WriteError(ctx, w, httpx.NewError(mapping.code, mapping.message, mapping.status))
			return
		}
	}
	requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
}

func invalidField(err error) string {
	if field, ok := pricing.FieldOf(err); ok {
		return field
	}
	var fieldErr *services.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Field
	}
	return ""
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}

// requireIdentity returns the authenticated principal or writes 401.
func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func isStaff(identity *auth.Identity) bool {
	return identity.HasAnyRole(auth.RoleAdmin, auth.RolePartner)
}

// decodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := httpx.ReadBody(r, limit)
	switch {
	case errors.Is(err, httpx.ErrEmptyBody):
		return true
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
		return false
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}
