// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &CustomHandler{Writer: &buf}

	err := h.HandleLog(&log.Entry{
		Level:     log.WarnLevel,
		Message:   "mutation failed",
		Timestamp: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
		Fields:    log.Fields{"seq": 2, "op": "create"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04 05:06:07 W mutation failed op=create seq=2\n", buf.String())
}

func TestInitLogger_Level(t *testing.T) {
	tests := []struct {
		env   string
		debug bool
		err   bool
	}{
		{env: "", debug: false, err: true},
		{env: "debug", debug: true, err: true},
		{env: "INFO", debug: false, err: true},
		{env: "bogus", debug: false, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(EnvLevel, tt.env)
			var buf bytes.Buffer
			InitLogger(&buf)

			log.Debug("dbg")
			log.Error("err")

			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte(" D dbg")))
			assert.Equal(t, tt.err, bytes.Contains(buf.Bytes(), []byte(" E err")))
		})
	}
}
