// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/output"
)

// GlobalFlagsValidator checks flag combinations that single-flag validators
// cannot see.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.Bool("diff") && c.String("output") != output.FormatText {
		return errors.New("--diff requires --output text")
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

// URLValidator requires an absolute http(s) URL.
func URLValidator(value any) error {
	u, err := url.Parse(value.(string))
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}

func PositiveIntValidator(value any) error {
	if value.(int) < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

// ParseIDs converts task id arguments. Placeholder (negative) ids exist only
// in a client's cache and are rejected.
func ParseIDs(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one task id is required")
	}
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q", a)
		}
		if id < 0 {
			return nil, fmt.Errorf("task %d is still being created", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
