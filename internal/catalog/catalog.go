// Package catalog resolves product ids to the title and price a cart line
// is created with.
package catalog

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Catalog looks up products.
type Catalog interface {
	// Product returns the product or a not-found error.
	Product(ctx context.Context, id string) (domain.Product, error)
}

// CircuitOpenFallback answers catalog calls while the breaker is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("catalog is temporarily unavailable, please retry shortly")
}
