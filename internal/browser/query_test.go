package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type textElement struct {
	text string
	err  error
}

func (e *textElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

func (e *textElement) Text(ctx context.Context) (string, error) {
	return e.text, e.err
}

func (e *textElement) ScrollIntoView(ctx context.Context) error { return nil }

func (e *textElement) Click(ctx context.Context) error { return nil }

func TestFirstContaining(t *testing.T) {
	detached := errors.New("could not find node with given id")
	want := &textElement{text: "立即申请"}

	tests := []struct {
		name    string
		els     []Element
		want    Element
		wantErr error
	}{
		{
			name: "skips detached nodes",
			els:  []Element{&textElement{err: detached}, &textElement{text: "说明"}, want},
			want: want,
		},
		{
			name: "first match wins",
			els:  []Element{want, &textElement{text: "立即申请 2"}},
			want: want,
		},
		{
			name:    "all unreadable",
			els:     []Element{&textElement{err: detached}, &textElement{err: detached}},
			wantErr: ErrNotFound,
		},
		{
			name:    "no match",
			els:     []Element{&textElement{text: "说明"}},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firstContaining(context.Background(), tt.els, "立即申请", zap.NewNop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestFirstContaining_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := firstContaining(ctx, []Element{&textElement{err: ctx.Err()}}, "立即申请", zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
