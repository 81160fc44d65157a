package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("googleapi: Error 429: Resource has been exhausted"), true},
		{fmt.Errorf("RESOURCE_EXHAUSTED: quota exceeded"), true},
		{fmt.Errorf("openai: rate limit reached for requests"), true},
		{fmt.Errorf("connection refused"), false},
		{fmt.Errorf("invalid api key"), false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, IsQuotaError(c.err), "err=%v", c.err)
	}
}
