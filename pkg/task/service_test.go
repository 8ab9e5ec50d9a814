package task

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestJSONTaskRoundTrip(t *testing.T) {
	type payload struct {
		To string `json:"to"`
	}

	tk, err := NewJSONTask("email:send", payload{To: "a@b.c"})
	require.NoError(t, err)
	require.Equal(t, "email:send", tk.Type())

	var out payload
	require.NoError(t, Decode(tk, &out))
	require.Equal(t, "a@b.c", out.To)

	err = Decode(asynq.NewTask("email:send", []byte("{")), &out)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}
