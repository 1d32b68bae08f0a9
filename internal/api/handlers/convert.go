package handlers

import (
	"errors"
	"net/http"

	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/domain"
	apperrors "keyport.io/keyport/internal/pkg/errors"
)

// integrationResult is the IntegrationResult schema: the integration plus
// whether this call created it.
type integrationResult struct {
	domain.Integration
	Created bool `json:"created"`
}

func toIntegrationResult(r *domain.IntegrationResult) integrationResult {
	out := integrationResult{Integration: r.Integration, Created: r.Created}
	out.Integration.Credentials = r.Credentials
	return out
}

// parseOrderBy maps a bad order_by to a 400 naming the field.
func parseOrderBy(raw *[]string, allowed map[string]string) (domain.OrderBy, error) {
	if raw == nil {
		return nil, nil
	}
	order, err := domain.ParseOrderBy(*raw, allowed)
	if errors.Is(err, domain.ErrInvalidOrderBy) {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidOrderBy, err.Error(), http.StatusBadRequest)
	}
	return order, err
}

func platformListParams(params openapi.ListPlatformsParams) (domain.PlatformListParams, error) {
	order, err := parseOrderBy(params.OrderBy, domain.PlatformSortFields)
	if err != nil {
		return domain.PlatformListParams{}, err
	}
	return domain.PlatformListParams{
		Name:        params.Name,
		Description: params.Description,
		OrderBy:     order,
	}, nil
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
