// Package watch renders the live claim-event stream and polls for claim
// visibility.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/warrenhq/warren/pkg/dropstore"
)

// FormatEvent renders one claim event as a single display line.
func FormatEvent(event *dropstore.ClaimEvent) string {
	ts := time.UnixMilli(event.ClaimedAtMs).UTC().Format(time.RFC3339)
	line := fmt.Sprintf("[%s] claim: ns=%s owner=%s token=%d", ts, event.Namespace, event.OwnerAddress, event.TokenID)
	if event.Referrer != "" {
		line += fmt.Sprintf(" referrer=%s", event.Referrer)
	}
	return line
}

// WriteEvent writes the rendered event line to w.
func WriteEvent(w io.Writer, event *dropstore.ClaimEvent) error {
	_, err := fmt.Fprintln(w, FormatEvent(event))
	return err
}

// AwaitClaim polls for a claim record until it becomes visible.
// Polls every 200ms for the specified timeout duration.
func AwaitClaim(ctx context.Context, client *dropstore.Client, namespace, address string, timeout time.Duration) (*dropstore.ClaimRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for claim after %v", timeout)

		case <-ticker.C:
			record, err := client.GetClaimRecord(ctx, namespace, address)
			if err != nil {
				if dropstore.IsNotFound(err) {
					// Not written yet, continue polling
					continue
				}
				return nil, fmt.Errorf("failed to query for claim: %w", err)
			}

			return record, nil
		}
	}
}
