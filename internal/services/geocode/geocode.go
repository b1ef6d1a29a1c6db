package geocode

import (
	"context"

	"github.com/terminal-bench/civicfix/internal/models"
)

// Geocoder resolves coordinates to an address. Implementations make at most
// one attempt per call; retries belong to the caller.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (models.Address, error)
}
