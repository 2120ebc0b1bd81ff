package html_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-tagview/pkg/html"
)

func TestLazy_EarlyTimeoutDoesNotPoisonLaterRenders(t *testing.T) {
	future := html.Lazy(func(ctx context.Context) (any, error) {
		select {
		case <-time.After(30 * time.Millisecond):
			return "<ready>", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	tpl := html.HTML([]string{"[", "]"}, future)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if _, err := tpl.Render(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded on the first render, got %v", err)
	}

	if got := render(t, tpl); got != "[&lt;ready&gt;]" {
		t.Fatalf("unexpected second render %q", got)
	}
}

func TestLazy_ProducerSeesContextValues(t *testing.T) {
	type key struct{}
	future := html.Lazy(func(ctx context.Context) (any, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})
	ctx := context.WithValue(context.Background(), key{}, "from ctx")
	got, err := future.Await(ctx)
	if err != nil || got != "from ctx" {
		t.Fatalf("unexpected outcome %v, %v", got, err)
	}
}

func TestFuture_ZeroValueSettlesWithError(t *testing.T) {
	var zero html.Future
	if _, err := zero.Await(context.Background()); !errors.Is(err, html.ErrEmptyFuture) {
		t.Fatalf("expected ErrEmptyFuture, got %v", err)
	}
	select {
	case <-zero.Done():
	default:
		t.Fatalf("zero future did not settle")
	}

	_, err := html.HTML([]string{"", ""}, new(html.Future)).Render(context.Background())
	if !errors.Is(err, html.ErrEmptyFuture) {
		t.Fatalf("expected ErrEmptyFuture from render, got %v", err)
	}
}
