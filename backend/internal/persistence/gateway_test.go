package persistence

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linklander/backend/internal/constants"
	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	apperrors "linklander/backend/pkg/errors"
)

func newTestGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	ctx := context.Background()

	store, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "linklander.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	gw := New(store, zap.NewNop(), opts)
	require.NoError(t, gw.EnsureSchema(ctx))
	return gw
}

func TestAddLink_RoundTrip(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "Go", "https://go.dev", "The Go Programming Language")
	require.NoError(t, err)
	assert.True(t, entity.IsUUID(id))

	link, err := gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.Link{
		UUID:   id,
		Name:   "Go",
		URL:    "https://go.dev",
		Title:  "The Go Programming Language",
		Clicks: 0,
		Score:  0,
	}, link)
}

func TestGetByUUID_MalformedIsNotFound(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	_, err := gw.GetLinkByUUID(ctx, "not-a-uuid")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	_, err = gw.GetTagByUUID(ctx, "")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestAddLink_Validation(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name      string
		linkName  string
		url       string
		wantField string
	}{
		{"blank name", "   ", "https://a.com", "name"},
		{"empty url", "A", "", "url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.AddLink(ctx, tt.linkName, tt.url, "")
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}

	links, err := gw.GetAllLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestAddLink_UniqueNames(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicates allowed by default", func(t *testing.T) {
		gw := newTestGateway(t, Options{})
		_, err := gw.AddLink(ctx, "dup", "https://one.com", "")
		require.NoError(t, err)
		_, err = gw.AddLink(ctx, "dup", "https://two.com", "")
		require.NoError(t, err)
	})

	t.Run("constraint enforced when enabled", func(t *testing.T) {
		gw := newTestGateway(t, Options{EnforceUniqueLinkNames: true})
		_, err := gw.AddLink(ctx, "dup", "https://one.com", "")
		require.NoError(t, err)

		_, err = gw.AddLink(ctx, "dup", "https://two.com", "")
		require.Error(t, err)

		var cv *apperrors.ConstraintViolation
		require.ErrorAs(t, err, &cv)
		assert.Equal(t, "link", cv.Entity)
		assert.Equal(t, "https://two.com", cv.Fields["url"])
		assert.ErrorIs(t, err, graph.ErrConstraint)
	})
}

func TestGetLinkByUUID_NotFound(t *testing.T) {
	gw := newTestGateway(t, Options{})

	_, err := gw.GetLinkByUUID(context.Background(), entity.NewUUID())
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestGetAllLinks_Idempotent(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := gw.AddLink(ctx, name, "https://"+name+".com", "")
		require.NoError(t, err)
	}

	first, err := gw.GetAllLinks(ctx)
	require.NoError(t, err)
	second, err := gw.GetAllLinks(ctx)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.ElementsMatch(t, first, second)
}

func TestSearchLinks(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	a, err := gw.AddLink(ctx, "A", "http://a.com", "")
	require.NoError(t, err)
	ab, err := gw.AddLink(ctx, "AB", "http://ab.com", "")
	require.NoError(t, err)

	t.Run("prefix matches both", func(t *testing.T) {
		links, err := gw.SearchLinks(ctx, entity.LinkName, "A")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a, ab}, uuids(links))
	})

	t.Run("longer substring matches one", func(t *testing.T) {
		links, err := gw.SearchLinks(ctx, entity.LinkName, "AB")
		require.NoError(t, err)
		assert.Equal(t, []string{ab}, uuids(links))
	})

	t.Run("case insensitive on url", func(t *testing.T) {
		links, err := gw.SearchLinks(ctx, entity.LinkURL, "AB.COM")
		require.NoError(t, err)
		assert.Equal(t, []string{ab}, uuids(links))
	})

	t.Run("unsupported field", func(t *testing.T) {
		_, err := gw.SearchLinks(ctx, entity.LinkTitle, "A")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))
	})

	t.Run("quotes are data", func(t *testing.T) {
		links, err := gw.SearchLinks(ctx, entity.LinkName, "' OR 1=1 --")
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestSearchLinksByText_UnionOnce(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	both, err := gw.AddLink(ctx, "golang", "https://golang.org", "")
	require.NoError(t, err)
	urlOnly, err := gw.AddLink(ctx, "docs", "https://pkg.go.dev/golang", "")
	require.NoError(t, err)
	_, err = gw.AddLink(ctx, "rust", "https://rust-lang.org", "")
	require.NoError(t, err)

	links, err := gw.SearchLinksByText(ctx, "GoLang")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{both, urlOnly}, uuids(links))
}

func TestSetLinkProperty(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "old", "https://old.com", "")
	require.NoError(t, err)

	require.NoError(t, gw.SetLinkProperty(ctx, id, "name", "new"))
	require.NoError(t, gw.SetLinkProperty(ctx, id, "URL", "https://new.com"))
	require.NoError(t, gw.SetLinkProperty(ctx, id, "title", ""))

	link, err := gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", link.Name)
	assert.Equal(t, "https://new.com", link.URL)

	err = gw.SetLinkProperty(ctx, id, "name", " ")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	err = gw.SetLinkProperty(ctx, id, "clicks", "10")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))

	err = gw.SetLinkProperty(ctx, id, "favicon", "x")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))

	err = gw.SetLinkProperty(ctx, entity.NewUUID(), "name", "x")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestSetLinkProperties_AllOrNothing(t *testing.T) {
	gw := newTestGateway(t, Options{EnforceUniqueLinkNames: true})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "old", "https://old.com", "Old")
	require.NoError(t, err)
	_, err = gw.AddLink(ctx, "taken", "https://taken.com", "")
	require.NoError(t, err)

	err = gw.SetLinkProperties(ctx, id, map[string]string{"name": "changed", "url": "   "})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	err = gw.SetLinkProperties(ctx, id, map[string]string{"title": "changed", "score": "4"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))

	err = gw.SetLinkProperties(ctx, id, map[string]string{"url": "https://moved.com", "name": "taken"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConstraint))

	err = gw.SetLinkProperties(ctx, id, map[string]string{"name": "a", "NAME": "b"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	err = gw.SetLinkProperties(ctx, id, map[string]string{})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	link, err := gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "old", link.Name)
	assert.Equal(t, "https://old.com", link.URL)
	assert.Equal(t, "Old", link.Title)

	require.NoError(t, gw.SetLinkProperties(ctx, id, map[string]string{"name": "new", "url": "https://new.com", "title": ""}))
	link, err = gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", link.Name)
	assert.Equal(t, "https://new.com", link.URL)
	assert.Empty(t, link.Title)
}

func TestSearchLinks_UnicodeCaseInsensitive(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "Ärzte Übersicht", "https://example.de/ärzte", "")
	require.NoError(t, err)

	for _, query := range []string{"Ärzte", "ärzte", "ÄRZTE", "übersicht"} {
		links, err := gw.SearchLinks(ctx, entity.LinkName, query)
		require.NoError(t, err)
		assert.Equal(t, []string{id}, uuids(links), query)
	}

	links, err := gw.SearchLinks(ctx, entity.LinkURL, "ÄRZTE")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, uuids(links))

	tagID, err := gw.AddTag(ctx, "Straße", "Streets")
	require.NoError(t, err)
	tags, err := gw.SearchTags(ctx, entity.TagName, "STRASSE")
	require.NoError(t, err)
	assert.Empty(t, tags)
	tags, err = gw.SearchTags(ctx, entity.TagName, "STRAßE")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tagID, tags[0].UUID)

	n, err := gw.DeleteLinks(ctx, entity.LinkName, "ärzte", entity.Soft)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateLink(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "counter", "https://counter.com", "")
	require.NoError(t, err)

	t.Run("click count increments once per call", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, gw.UpdateLink(ctx, entity.LinkClickCount, "counter", "counter"))
		}
		link, err := gw.GetLinkByUUID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(3), link.Clicks)
	})

	t.Run("score parses as float", func(t *testing.T) {
		require.NoError(t, gw.UpdateLink(ctx, entity.LinkScore, "counter", "2.5"))
		link, err := gw.GetLinkByUUID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2.5, link.Score)

		err = gw.UpdateLink(ctx, entity.LinkScore, "counter", "high")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("url matches on url", func(t *testing.T) {
		require.NoError(t, gw.UpdateLink(ctx, entity.LinkURL, "https://counter.com", "https://c.com"))
		link, err := gw.GetLinkByUUID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "https://c.com", link.URL)
	})

	t.Run("rename", func(t *testing.T) {
		require.NoError(t, gw.UpdateLink(ctx, entity.LinkName, "counter", "renamed"))
		link, err := gw.GetLinkByUUID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "renamed", link.Name)
	})

	t.Run("no match", func(t *testing.T) {
		err := gw.UpdateLink(ctx, entity.LinkClickCount, "missing", "missing")
		var nf *apperrors.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "name", nf.Property)
		assert.Equal(t, "missing", nf.Value)
	})

	t.Run("title is not updatable", func(t *testing.T) {
		err := gw.UpdateLink(ctx, entity.LinkTitle, "renamed", "x")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))
	})
}

func TestDeleteLink(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	linkID, err := gw.AddLink(ctx, "doomed", "https://doomed.com", "")
	require.NoError(t, err)
	tagID, err := gw.AddTag(ctx, "temp", "temporary")
	require.NoError(t, err)
	require.NoError(t, gw.AddTagToLink(ctx, linkID, tagID))

	require.NoError(t, gw.DeleteLink(ctx, linkID))

	_, err = gw.GetLinkByUUID(ctx, linkID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	// the tag survives its link
	_, err = gw.GetTagByUUID(ctx, tagID)
	assert.NoError(t, err)

	err = gw.DeleteLink(ctx, linkID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestDeleteLinks_Modes(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	for _, name := range []string{"news", "newsletter", "old news", "weather"} {
		_, err := gw.AddLink(ctx, name, "https://"+strings.ReplaceAll(name, " ", "")+".com", "")
		require.NoError(t, err)
	}

	n, err := gw.DeleteLinks(ctx, entity.LinkName, "news", entity.Exact)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = gw.DeleteLinks(ctx, entity.LinkName, "NEWS", entity.Soft)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	links, err := gw.GetAllLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "weather", links[0].Name)

	_, err = gw.DeleteLinks(ctx, entity.LinkScore, "1", entity.Exact)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnsupportedField))

	_, err = gw.DeleteLinks(ctx, entity.LinkName, "weather", entity.DeletionMode(0))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestClicksAndScore(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	id, err := gw.AddLink(ctx, "visited", "https://visited.com", "")
	require.NoError(t, err)

	require.NoError(t, gw.IncrementLinkClick(ctx, id))
	gw.RecordLinkClick(ctx, id)
	// best effort: a missing link is only logged
	gw.RecordLinkClick(ctx, entity.NewUUID())

	require.NoError(t, gw.UpdateLinkScore(ctx, id, 4))
	require.NoError(t, gw.UpdateLinkScore(ctx, "visited", 5.5))

	link, err := gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.Clicks)
	assert.Equal(t, 5.5, link.Score)

	err = gw.IncrementLinkClick(ctx, entity.NewUUID())
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	err = gw.UpdateLinkScore(ctx, "nobody", 1)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestUpdateLinkScore_UUIDWinsOverName(t *testing.T) {
	gw := newTestGateway(t, Options{})
	ctx := context.Background()

	target, err := gw.AddLink(ctx, "target", "https://target.com", "")
	require.NoError(t, err)
	// a second link whose name is the first link's uuid
	decoy, err := gw.AddLink(ctx, target, "https://decoy.com", "")
	require.NoError(t, err)

	require.NoError(t, gw.UpdateLinkScore(ctx, target, 9))

	link, err := gw.GetLinkByUUID(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 9.0, link.Score)

	other, err := gw.GetLinkByUUID(ctx, decoy)
	require.NoError(t, err)
	assert.Zero(t, other.Score)
}

func TestEnsureSchema_RelaxesLinkNameUniqueness(t *testing.T) {
	ctx := context.Background()
	store, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "relax.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close(ctx)

	strict := New(store, zap.NewNop(), Options{EnforceUniqueLinkNames: true})
	require.NoError(t, strict.EnsureSchema(ctx))
	_, err = strict.AddLink(ctx, "dup", "https://one.com", "")
	require.NoError(t, err)
	_, err = strict.AddLink(ctx, "dup", "https://two.com", "")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConstraint))

	relaxed := New(store, zap.NewNop(), Options{})
	require.NoError(t, relaxed.EnsureSchema(ctx))
	_, err = relaxed.AddLink(ctx, "dup", "https://two.com", "")
	require.NoError(t, err)

	links, err := relaxed.SearchLinks(ctx, entity.LinkName, "dup")
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestLegacyEncodingIsCoerced(t *testing.T) {
	ctx := context.Background()
	store, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "legacy.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close(ctx)
	gw := New(store, zap.NewNop(), Options{})

	id := entity.NewUUID()
	err = store.Write(ctx, func(tx graph.Tx) error {
		_, err := tx.CreateNode(ctx, constants.LabelLink, graph.Properties{
			constants.PropUUID:   id,
			constants.PropName:   "legacy",
			constants.PropURL:    "https://legacy.com",
			constants.PropTitle:  "",
			constants.PropClicks: "4",
			constants.PropScore:  "0.5",
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, gw.IncrementLinkClick(ctx, id))

	link, err := gw.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), link.Clicks)
	assert.Equal(t, 0.5, link.Score)
}

func uuids(links []entity.Link) []string {
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.UUID)
	}
	return ids
}
