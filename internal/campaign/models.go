// Package campaign is the boundary to the campaign/opportunity collaborator.
// The contribution engine only reads goals/spots, atomically increments
// raised totals, and appends roster entries; everything else about campaigns
// is owned elsewhere.
package campaign

import (
	"time"

	id "ngoconnect/pkg/domain"
)

// Campaign is the funding aggregate a donation references.
//
// Invariants:
//   - CurrentAmountMinor is monotonically non-decreasing and is incremented
//     only by completed donations
//   - a campaign accepts funding iff GoalAmountMinor > 0 and
//     CurrentAmountMinor < GoalAmountMinor
type Campaign struct {
	ID                 id.CampaignID
	NGOID              id.NGOID
	NGOName            string
	Title              string
	GoalAmountMinor    int64
	CurrentAmountMinor int64
	CreatedAt          time.Time
}

// AcceptsFunding reports whether the campaign can take further donations.
func (c *Campaign) AcceptsFunding() bool {
	return c.GoalAmountMinor > 0 && c.CurrentAmountMinor < c.GoalAmountMinor
}

// Opportunity is the volunteering aggregate an application references.
// Spots of zero means unlimited.
type Opportunity struct {
	ID        id.OpportunityID
	NGOID     id.NGOID
	NGOName   string
	Title     string
	Location  string
	Skills    []string
	Spots     int
	CreatedAt time.Time
}
