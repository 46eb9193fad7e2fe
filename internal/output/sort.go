// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/tasksync/internal/tasks"
)

type sortKey struct {
	name          string
	descending    bool
	caseSensitive bool
}

// SortItems orders data in place by a comma-separated list of keys. A
// leading "-" sorts descending and a leading "!" makes label comparison case
// sensitive. An empty spec keeps server order.
func SortItems(data tasks.Collection, spec string) {
	if spec == "" {
		return
	}

	var keys []sortKey
	for _, k := range strings.Split(spec, ",") {
		sk := sortKey{}
		for len(k) > 0 && (k[0] == '-' || k[0] == '!') {
			if k[0] == '-' {
				sk.descending = true
			} else {
				sk.caseSensitive = true
			}
			k = k[1:]
		}
		if k != "id" && k != "label" {
			log.Errorf("invalid sort key: %s", k)
			continue
		}
		sk.name = k
		keys = append(keys, sk)
	}

	sort.SliceStable(data, func(i, j int) bool {
		for _, k := range keys {
			c := compare(data[i], data[j], k)
			if c == 0 {
				continue
			}
			if k.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b tasks.Item, k sortKey) int {
	if k.name == "id" {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
	la, lb := a.Label, b.Label
	if !k.caseSensitive {
		la, lb = strings.ToLower(la), strings.ToLower(lb)
	}
	return strings.Compare(la, lb)
}
