package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/flowreg/internal/flow"
)

// timeLayout stores timestamps as fixed-width UTC text so that they sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// unmarshalTags decodes the json_group_array aggregate of a flow's tags.
// The aggregate has no defined order, so the set is re-sorted.
func unmarshalTags(data string) (flow.TagSet, error) {
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return flow.NewTagSet(tags...), nil
}
