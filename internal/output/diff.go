// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/tasksync/internal/tasks"
)

// Diff renders the change from before to after as an ascii delta. It returns
// "" when nothing changed.
func Diff(before, after tasks.Collection, color bool) (string, error) {
	left, err := document(before)
	if err != nil {
		return "", err
	}
	right, err := document(after)
	if err != nil {
		return "", err
	}

	d, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", fmt.Errorf("failed to compare collections: %w", err)
	}
	if !d.Modified() {
		return "", nil
	}

	var leftObj map[string]interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", fmt.Errorf("failed to decode collection: %w", err)
	}

	f := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	return f.Format(d)
}

// document wraps c in an object; the differ only compares objects.
func document(c tasks.Collection) ([]byte, error) {
	if c == nil {
		c = tasks.Collection{}
	}
	b, err := json.Marshal(map[string]tasks.Collection{tasks.Key: c})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return b, nil
}
