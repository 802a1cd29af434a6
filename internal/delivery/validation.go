package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
)

var validate = validator.New()

// ValidateCreateRequest checks field shape and cross-field coherence of a
// creation payload. Clock-dependent guards (past dates) live in the service.
func ValidateCreateRequest(req CreateDeliveryRequest) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	if strings.TrimSpace(req.NFNumber) == "" {
		return fmt.Errorf("nf_number must not be blank")
	}
	return nil
}

// ValidateCounterProposeRequest checks field shape of a counter-proposal.
func ValidateCounterProposeRequest(req CounterProposeRequest) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateCancelRequest checks field shape of a cancellation.
func ValidateCancelRequest(req CancelRequest) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateConfirmReceiptRequest checks field shape of a receipt confirmation.
func ValidateConfirmReceiptRequest(req ConfirmReceiptRequest) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// parseProposal assembles a window offer from wire fields already shape
// checked by the validator.
func parseProposal(date, start, end string) (negotiation.Proposal, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return negotiation.Proposal{}, fmt.Errorf("parse proposed_date: %w", err)
	}
	s, err := negotiation.ParseTimeOfDay(start)
	if err != nil {
		return negotiation.Proposal{}, err
	}
	e, err := negotiation.ParseTimeOfDay(end)
	if err != nil {
		return negotiation.Proposal{}, err
	}
	return negotiation.Proposal{Date: d, Start: s, End: e}, nil
}

// validationError flattens validator output into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return err
}
