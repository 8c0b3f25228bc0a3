package assemble

import (
	"context"

	"github.com/dbxmcp/dbxmcp/retry"
)

// ClampListingLimit applies the listing default and hard ceiling.
func ClampListingLimit(maxItems int) int {
	if maxItems <= 0 {
		return ListingDefaultMaxItems
	}
	if maxItems > ListingMaxItems {
		return ListingMaxItems
	}
	return maxItems
}

// Listing fetches pages in order until the remote is exhausted or maxItems is
// reached, whichever comes first. Items keep the remote's order; the cap stops
// fetching at a page boundary so a resumed call sees no gaps and no
// duplicates. resume, when non-nil, continues from a previous truncation.
func Listing(ctx context.Context, resourceKind string, fn PageFunc, maxItems int, resume *ListingCursor, opts Options) (*Result[map[string]any], error) {
	maxItems = ClampListingLimit(maxItems)
	result := &Result[map[string]any]{}

	token := ""
	if resume != nil {
		token = resume.PageToken
	}

	pageIndex := 0
	for {
		remaining := maxItems - len(result.Items)
		page, _, err := retry.DoValue(ctx, opts.Policy, func(ctx context.Context) (Page, error) {
			return fn(ctx, token, remaining)
		})
		if err != nil {
			ce := retry.Classify(err)
			if resume != nil && ce.Kind == retry.KindBadRequest {
				stale := &retry.ClassifiedError{
					Kind:       retry.KindStaleCursor,
					HTTPStatus: ce.HTTPStatus,
					Message:    "listing page token has expired; restart the listing",
					Cause:      ce,
				}
				return nil, stale
			}
			if opts.BestEffort {
				result.Err = ce
				result.FailedAt = pageIndex
				result.Truncated = true
				if token != "" {
					result.Cursor = ListingCursor{ResourceKind: resourceKind, PageToken: token}.Encode()
				}
				return result, nil
			}
			return nil, ce
		}

		result.Items = append(result.Items, page.Items...)
		if page.TotalKnown > 0 {
			result.TotalKnown = page.TotalKnown
		}

		if page.NextPageToken == "" {
			result.Complete = true
			return result, nil
		}
		token = page.NextPageToken
		pageIndex++

		if len(result.Items) >= maxItems {
			result.Truncated = true
			result.Cursor = ListingCursor{ResourceKind: resourceKind, PageToken: token}.Encode()
			return result, nil
		}
	}
}
