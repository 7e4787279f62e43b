package announce

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yahsan2/enrollctl/pkg/logging"
)

// TagCounter estimates the number of users carrying a tag
type TagCounter interface {
	CountTagUsers(ctx context.Context, tagID string) (int, error)
}

// Estimate is the user-count estimate for one recipient row
type Estimate struct {
	Row   int
	Count int
	Err   error
}

// maxConcurrentEstimates bounds the number of parallel count requests
const maxConcurrentEstimates = 4

// EstimateTagRecipients fetches user counts for every TAG recipient. The
// fetches run concurrently and finish in any order; each result is stored at
// its row index so one row's failure never touches another row.
func EstimateTagRecipients(ctx context.Context, counter TagCounter, recipients []Recipient) []*Estimate {
	estimates := make([]*Estimate, len(recipients))

	var g errgroup.Group
	g.SetLimit(maxConcurrentEstimates)

	for i, r := range recipients {
		if r.Type != RecipientTag {
			continue
		}
		i, tagID := i, r.ID
		g.Go(func() error {
			count, err := counter.CountTagUsers(ctx, tagID)
			if err != nil {
				logging.From(ctx).Warn("tag estimate failed", "row", i, "tag", tagID, "error", err)
			}
			estimates[i] = &Estimate{Row: i, Count: count, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return estimates
}

// TotalEstimate sums the successful estimates
func TotalEstimate(estimates []*Estimate) (total int, complete bool) {
	complete = true
	for _, e := range estimates {
		if e == nil {
			continue
		}
		if e.Err != nil {
			complete = false
			continue
		}
		total += e.Count
	}
	return total, complete
}
