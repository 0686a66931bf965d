package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mpratt/folio-api/models"
)

// FeedReader pages through the public feed the way the site does: page one
// replaces the local list, further pages append to it. Pages are stable only
// while nothing is inserted or deleted server-side; boundary duplication
// under concurrent writes is accepted, not corrected.
type FeedReader struct {
	c        *Client
	pageSize int

	photos  []models.Photo
	page    int
	total   int64
	hasMore bool
}

func (c *Client) NewFeedReader(pageSize int) *FeedReader {
	// Mirror the server's limit clamp; an out-of-range size would make the
	// server paginate by a different step than the reader assumes.
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	return &FeedReader{c: c, pageSize: pageSize}
}

// Refresh fetches page one and replaces the local list.
func (f *FeedReader) Refresh(ctx context.Context) error {
	feed, err := f.c.FetchFeedPage(ctx, 1, f.pageSize)
	if err != nil {
		return err
	}
	f.photos = feed.Photos
	f.page = 1
	f.total = feed.TotalCount
	f.hasMore = feed.HasMore
	return nil
}

// LoadMore fetches the next page and appends it.
func (f *FeedReader) LoadMore(ctx context.Context) error {
	if f.page == 0 {
		return f.Refresh(ctx)
	}
	if !f.hasMore {
		return nil
	}
	feed, err := f.c.FetchFeedPage(ctx, f.page+1, f.pageSize)
	if err != nil {
		return err
	}
	f.photos = append(f.photos, feed.Photos...)
	f.page = feed.Page
	f.total = feed.TotalCount
	f.hasMore = feed.HasMore
	return nil
}

// Delete removes the photo server-side, then splices it out of the local
// list and decrements the tracked total. Optimistic update: the local count
// is not reconciled against the server afterwards.
func (f *FeedReader) Delete(ctx context.Context, id string) error {
	if err := f.c.DeletePhoto(ctx, id); err != nil {
		return err
	}
	for i := range f.photos {
		if f.photos[i].ID == id {
			f.photos = append(f.photos[:i], f.photos[i+1:]...)
			break
		}
	}
	if f.total > 0 {
		f.total--
	}
	return nil
}

func (f *FeedReader) Photos() []models.Photo { return f.photos }

func (f *FeedReader) Total() int64 { return f.total }

func (f *FeedReader) HasMore() bool { return f.hasMore }

// FetchFeedPage gets one page of the public feed.
func (c *Client) FetchFeedPage(ctx context.Context, page, limit int) (*models.PhotoFeed, error) {
	path := fmt.Sprintf("/api/photos/feed?page=%d&limit=%d", page, limit)
	var feed models.PhotoFeed
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// GetPhoto fetches a single photo by id.
func (c *Client) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	var out struct {
		Photo *models.Photo `json:"photo"`
	}
	path := "/api/photos/?id=" + url.QueryEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Photo, nil
}

// DeletePhoto deletes an owned photo by id.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	path := "/api/photos/?id=" + url.QueryEscape(id)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
