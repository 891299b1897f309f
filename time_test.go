package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kodbank/go-bank-auth"
)

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected time.Duration
	}{
		{name: "seconds", expr: "45s", expected: 45 * time.Second},
		{name: "minutes", expr: "30m", expected: 30 * time.Minute},
		{name: "hours", expr: "12h", expected: 12 * time.Hour},
		{name: "days", expr: "7d", expected: 7 * 24 * time.Hour},
		{name: "single day", expr: "1d", expected: 24 * time.Hour},
		{name: "empty falls back", expr: "", expected: auth.DefaultTokenLifetime},
		{name: "unknown unit", expr: "3w", expected: auth.DefaultTokenLifetime},
		{name: "compound expression", expr: "2h30m", expected: auth.DefaultTokenLifetime},
		{name: "missing amount", expr: "d", expected: auth.DefaultTokenLifetime},
		{name: "zero", expr: "0h", expected: auth.DefaultTokenLifetime},
		{name: "whitespace", expr: " 7d", expected: auth.DefaultTokenLifetime},
		{name: "largest representable days", expr: "106751d", expected: 106751 * 24 * time.Hour},
		{name: "days overflow", expr: "106752d", expected: auth.DefaultTokenLifetime},
		{name: "huge amount", expr: "999999999999d", expected: auth.DefaultTokenLifetime},
		{name: "seconds overflow", expr: "9999999999999s", expected: auth.DefaultTokenLifetime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.ParseLifetime(tt.expr))
		})
	}
}
