package companies

import (
	"time"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Company represents one side of the negotiation: a seller that ships
// invoiced goods or a buyer that receives them. The role is fixed at
// registration.
type Company struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	TaxID     string             `json:"tax_id"`
	Role      shared.CompanyRole `json:"role"`
	City      string             `json:"city,omitempty"`
	State     string             `json:"state,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
