package vlm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Model = (*MockModel)(nil)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "no", "no"},
		{"eos marker", "no</s>", "no"},
		{"newlines and padding", "  a fire\nis visible </s> ", "a fire is visible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel()
	m.AddResponse("is there a fire?", "no")

	resp, err := m.Complete(context.Background(), Request{Prompt: "is there a fire?"})
	require.NoError(t, err)
	assert.Equal(t, "no", resp.Text)
}

func TestMockModel_BlockRespectsContext(t *testing.T) {
	m := NewMockModel()
	m.BlockUntil(make(chan struct{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, Request{Prompt: "slow"})
	var epErr *EndpointError
	require.ErrorAs(t, err, &epErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
