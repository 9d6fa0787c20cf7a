package persistence

import (
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// TicketNotFound wraps api.ErrTicketNotFound with the offending ticket.
func TicketNotFound(ticket string) error {
	return fmt.Errorf("%w: %s", api.ErrTicketNotFound, ticket)
}
