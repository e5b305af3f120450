package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10.004", "10"},
		{"10.005", "10.01"},
		{"10.006", "10.01"},
		{"-10.005", "-10.01"},
		{"-10.004", "-10"},
		{"166.665", "166.67"},
		{"0.001", "0"},
		{"0", "0"},
	}
	for _, c := range cases {
		in := decimal.RequireFromString(c.in)
		assert.True(t, Round2(in).Equal(decimal.RequireFromString(c.want)),
			"Round2(%s) = %s, want %s", c.in, Round2(in), c.want)
	}
}

func TestRound2_Idempotent(t *testing.T) {
	for _, raw := range []string{"0.005", "-0.005", "123.456789", "1000", "-999.999", "0.01"} {
		v := decimal.RequireFromString(raw)
		once := Round2(v)
		assert.True(t, Round2(once).Equal(once), "Round2(Round2(%s)) != Round2(%s)", raw, raw)
	}
}
