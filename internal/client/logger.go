// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package client

import (
	"fmt"

	"github.com/apex/log"
)

// leveledLogger routes retryablehttp's logging into apex.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { entry(kv).Error(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { entry(kv).Warn(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { entry(kv).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { entry(kv).Debug(msg) }

func entry(kv []interface{}) *log.Entry {
	fields := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return log.WithFields(fields)
}
