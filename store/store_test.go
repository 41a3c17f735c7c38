package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(tag, xpath string, attrs ...dom.Attribute) *dom.HistoryElement {
	el := &dom.ElementNode{TagName: tag, XPath: xpath, Attributes: attrs}
	body := &dom.ElementNode{TagName: "body", XPath: "html/body"}
	body.AppendChild(el)
	return dom.NewHistoryElement(el)
}

func TestSaveLoad(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	btn := record("button", "html/body/button",
		dom.Attribute{Name: "type", Value: "submit"},
		dom.Attribute{Name: "aria-label", Value: "Pay"},
		dom.Attribute{Name: "id", Value: "pay"})
	link := record("a", "html/body/a", dom.Attribute{Name: "href", Value: "/terms"})

	saved, err := s.Save(ctx, "step-1", "https://shop.test/cart", btn, link)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, 0, saved[0].Position)
	assert.Equal(t, 1, saved[1].Position)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)

	got, err := s.Load(ctx, "step-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://shop.test/cart", got[0].URL)
	if diff := cmp.Diff(btn, got[0].Element); diff != "" {
		t.Fatalf("record changed in storage (-want +got):\n%s", diff)
	}
	assert.True(t, got[0].Element.Fingerprint().Equal(btn.Fingerprint()))
	assert.Equal(t, saved[1].ID, got[1].ID)
}

func TestSave_AppendsAfterExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "step-1", "", record("a", "html/body/a"))
	require.NoError(t, err)
	more, err := s.Save(ctx, "step-1", "", record("input", "html/body/input"))
	require.NoError(t, err)
	assert.Equal(t, 1, more[0].Position)

	got, err := s.Load(ctx, "step-1")
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].Element.TagName)
	assert.Equal(t, "input", got[1].Element.TagName)
}

func TestSave_NilElementRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "step-1", "", record("a", "html/body/a"), nil)
	require.Error(t, err)

	_, err = s.Load(ctx, "step-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Missing(t *testing.T) {
	_, err := testStore(t).Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAndSteps(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "step-1", "", record("a", "html/body/a"), record("a", "html/body/a[2]"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "step-2", "", record("button", "html/body/button"))
	require.NoError(t, err)

	steps, err := s.Steps(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"step-1", "step-2"}, steps)

	n, err := s.Delete(ctx, "step-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	steps, err = s.Steps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"step-2"}, steps)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "step-1", "", record("a", "html/body/a"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Load(context.Background(), "step-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
