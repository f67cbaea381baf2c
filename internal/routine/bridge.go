package routine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/example/family-planner/internal/interval"
)

// Bridge serves routine busy intervals keyed by member. It satisfies the
// suggestion orchestrator's device calendar contract: unknown member IDs
// yield no intervals rather than an error.
type Bridge struct {
	expander *Expander
	byMember map[string][]Block
}

// NewBridge indexes blocks by member. A nil location falls back to UTC.
func NewBridge(blocks []Block, loc *time.Location) *Bridge {
	byMember := make(map[string][]Block)
	for _, block := range blocks {
		byMember[block.MemberID] = append(byMember[block.MemberID], block)
	}
	return &Bridge{expander: NewExpander(loc), byMember: byMember}
}

// BusyIntervals expands the member's routine blocks over the requested
// period.
func (b *Bridge) BusyIntervals(_ context.Context, memberID string, periodStart, periodEnd time.Time) ([]interval.Interval, error) {
	var busy []interval.Interval
	for _, block := range b.byMember[memberID] {
		expanded, err := b.expander.Expand(block, periodStart, periodEnd)
		if err != nil {
			return nil, fmt.Errorf("expand routine block %q for member %q: %w", block.Label, memberID, err)
		}
		busy = append(busy, expanded...)
	}
	return busy, nil
}

// LoadBlocks reads a JSON array of routine blocks from disk and rejects
// entries missing the fields expansion depends on.
func LoadBlocks(path string) ([]Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routine file: %w", err)
	}

	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("parse routine file %s: %w", path, err)
	}

	for i, block := range blocks {
		if block.MemberID == "" {
			return nil, fmt.Errorf("routine block %d: memberId is required", i)
		}
		if block.Start == "" || block.End == "" {
			return nil, fmt.Errorf("routine block %d: start and end are required", i)
		}
	}
	return blocks, nil
}
