package persist

import (
	"context"
	"fmt"
)

const (
	// LaunchpadStatusActive is a campaign still accepting mints
	LaunchpadStatusActive LaunchpadStatus = "active"
	// LaunchpadStatusEnded is a campaign whose raise goal has been met
	LaunchpadStatusEnded LaunchpadStatus = "ended"
)

// LaunchpadStatus is the lifecycle status of a launchpad campaign
type LaunchpadStatus string

// Launchpad represents an NFT distribution campaign backed by custody-held serials
type Launchpad struct {
	ID           DBID            `json:"id"`
	CreationTime CreationTime    `json:"created_at"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`

	TokenID      TokenID         `json:"token_id"`
	Name         NullString      `json:"name"`
	Price        NullString      `json:"price"`
	Goal         int64           `json:"goal"`
	Participants int64           `json:"participants"`
	Minted       int64           `json:"minted"`
	TotalRaised  int64           `json:"total_raised"`
	Status       LaunchpadStatus `json:"status"`
}

// LaunchpadRepository represents the campaign store contract. RecordMint must
// apply its counter updates atomically at the store, not read-modify-write.
type LaunchpadRepository interface {
	GetByToken(context.Context, TokenID) (Launchpad, error)
	RecordMint(context.Context, TokenID, int64, int64) error
}

// ErrLaunchpadNotFound is returned when no campaign exists for a collection
type ErrLaunchpadNotFound struct {
	TokenID TokenID
}

func (e ErrLaunchpadNotFound) Error() string {
	return fmt.Sprintf("no launchpad found for token %s", e.TokenID)
}
