package importer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tqviet/extraq/pkg/importer"
)

func pagedFetch(pages map[string]importer.Page[int], calls *int) importer.FetchFunc[int] {
	return func(_ context.Context, cursor string) (importer.Page[int], error) {
		*calls++
		page, ok := pages[cursor]
		if !ok {
			return importer.Page[int]{}, fmt.Errorf("unknown cursor %q", cursor)
		}
		return page, nil
	}
}

func TestPaginateWalksPages(t *testing.T) {
	calls := 0
	fetch := pagedFetch(map[string]importer.Page[int]{
		"":   {Items: []int{1, 2}, Cursor: "p2", HasMore: true},
		"p2": {Items: []int{3, 4}, Cursor: "p3", HasMore: true},
		"p3": {Items: []int{5}},
	}, &calls)

	var got []int
	for item, err := range importer.Paginate(context.Background(), fetch) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, item)
	}

	want := []int{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got: %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got: %v", want, got)
		}
	}

	if calls != 3 {
		t.Fatalf("expected 3 page fetches, got: %d", calls)
	}
}

func TestPaginateYieldsFetchErrorOnce(t *testing.T) {
	errFetch := errors.New("fetch failed")

	calls := 0
	fetch := func(_ context.Context, cursor string) (importer.Page[int], error) {
		calls++
		if cursor == "" {
			return importer.Page[int]{Items: []int{1}, Cursor: "bad", HasMore: true}, nil
		}
		return importer.Page[int]{}, errFetch
	}

	var got []int
	var seen []error
	for item, err := range importer.Paginate(context.Background(), fetch) {
		if err != nil {
			seen = append(seen, err)
			continue
		}
		got = append(got, item)
	}

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected the first page's items, got: %v", got)
	}
	if len(seen) != 1 || !errors.Is(seen[0], errFetch) {
		t.Fatalf("expected the fetch error exactly once, got: %v", seen)
	}
	if calls != 2 {
		t.Fatalf("expected fetching to stop after the failure, got %d calls", calls)
	}
}

func TestPaginateStopsOnBreak(t *testing.T) {
	calls := 0
	fetch := pagedFetch(map[string]importer.Page[int]{
		"":   {Items: []int{1, 2}, Cursor: "p2", HasMore: true},
		"p2": {Items: []int{3}},
	}, &calls)

	for item, err := range importer.Paginate(context.Background(), fetch) {
		if err != nil {
			t.Fatal(err)
		}
		if item == 1 {
			break
		}
	}

	if calls != 1 {
		t.Fatalf("expected no fetches after the break, got: %d", calls)
	}
}

func TestCollect(t *testing.T) {
	calls := 0
	fetch := pagedFetch(map[string]importer.Page[int]{
		"":   {Items: []int{1, 2, 3}, Cursor: "p2", HasMore: true},
		"p2": {Items: []int{4, 5}},
	}, &calls)

	t.Run("everything", func(t *testing.T) {
		items, err := importer.Collect(context.Background(), fetch, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 5 {
			t.Fatalf("expected 5 items, got: %v", items)
		}
	})

	t.Run("capped", func(t *testing.T) {
		items, err := importer.Collect(context.Background(), fetch, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got: %v", items)
		}
	})
}

func TestTransformError(t *testing.T) {
	cause := errors.New("missing required field")
	err := importer.NewTransformError("rec-1", "title", cause)

	if !errors.Is(err, cause) {
		t.Fatal("transform error should unwrap to its cause")
	}

	var terr *importer.TransformError
	if !errors.As(err, &terr) {
		t.Fatal("expected a transform error")
	}
	if terr.RecordID != "rec-1" || terr.Field != "title" {
		t.Fatalf("unexpected fields: %+v", terr)
	}
}
