package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validListing() Listing {
	return Listing{ID: "l1", Title: "Sunny 3 rooms", Price: 5200, Status: StatusNew}
}

func TestListing_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(l *Listing)
		wantErr bool
	}{
		{name: "Valid", mutate: func(l *Listing) {}},
		{name: "Valid with optional fields", mutate: func(l *Listing) {
			l.Rating = intPtr(10)
			l.Reminder = &Reminder{Date: "2026-03-01", Note: "call owner"}
		}},
		{name: "Free price", mutate: func(l *Listing) { l.Price = 0 }},
		{name: "Missing id", mutate: func(l *Listing) { l.ID = "" }, wantErr: true},
		{name: "Negative price", mutate: func(l *Listing) { l.Price = -1 }, wantErr: true},
		{name: "Unknown status", mutate: func(l *Listing) { l.Status = "sold" }, wantErr: true},
		{name: "Rating below range", mutate: func(l *Listing) { l.Rating = intPtr(0) }, wantErr: true},
		{name: "Rating above range", mutate: func(l *Listing) { l.Rating = intPtr(11) }, wantErr: true},
		{name: "Reminder date unparseable", mutate: func(l *Listing) { l.Reminder = &Reminder{Date: "next week"} }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := validListing()
			tc.mutate(&l)
			err := l.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidListingData)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReminder_Due(t *testing.T) {
	r := Reminder{Date: "2026-01-02"}
	assert.True(t, r.Due(time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC)))
	assert.True(t, r.Due(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Due(time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.False(t, Reminder{Date: "soon"}.Due(time.Now()))
}

func TestCollection_Find(t *testing.T) {
	c := Collection{{ID: "a"}, {ID: "b"}}
	i, ok := c.Find("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = c.Find("missing")
	assert.False(t, ok)
}

func TestCollection_CloneIsDeep(t *testing.T) {
	orig := Collection{{ID: "a", Images: []ImageRef{RemoteRef("x.png")}, Amenities: map[string]bool{"parking": true}, Rating: intPtr(7)}}
	c := orig.Clone()
	c[0].Images[0] = RemoteRef("y.png")
	c[0].Amenities["elevator"] = true
	*c[0].Rating = 1

	assert.Equal(t, RemoteRef("x.png"), orig[0].Images[0])
	assert.Equal(t, map[string]bool{"parking": true}, orig[0].Amenities)
	assert.Equal(t, 7, *orig[0].Rating)
}

func TestCollection_WithoutInlineDropsMalformedEntries(t *testing.T) {
	stored := `[{"id":"a","title":"","address":{"street":"","city":""},"price":0,"rooms":"","phone":"","link":"","status":"new","createdAt":1,
		"images":["data:image/png;base64,aGk=","data:image/png;base64,@@@",null,"abc.png","local:b.jpg"]}]`

	var c Collection
	require.NoError(t, json.Unmarshal([]byte(stored), &c))
	require.Len(t, c[0].Images, 5)

	durable := c.WithoutInline()
	assert.Equal(t, []ImageRef{RemoteRef("abc.png"), LocalFileRef("b.jpg")}, durable[0].Images)
	assert.Len(t, c[0].Images, 5, "the in-memory collection keeps its inline images")

	out, err := json.Marshal(durable)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"images":["abc.png","local:b.jpg"]`)
	assert.NotContains(t, string(out), "data:")
}

func TestCollection_StripImages(t *testing.T) {
	c := Collection{{ID: "a", Title: "Garden flat", Images: []ImageRef{RemoteRef("x.png"), DeviceBlobRef("7")}}}

	stripped := c.StripImages()
	assert.Equal(t, "Garden flat", stripped[0].Title)
	assert.Empty(t, stripped[0].Images)
	assert.Len(t, c[0].Images, 2)

	out, err := json.Marshal(stripped)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"images":[]`)
}
