package lowercase

import (
	"context"
	"testing"
)

func TestTransform(t *testing.T) {
	step := New()

	out, err := step.Transform(context.Background(), []byte("ПРИВЕТ Мир Hello"))
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if string(out) != "привет мир hello" {
		t.Errorf("got %q", out)
	}
}
