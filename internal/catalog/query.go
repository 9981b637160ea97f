// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"strings"
)

// All returns the public videos, most recent uploads first.
func (c *Catalog) All() []VideoRecord {
	return c.filter(func(v *VideoRecord) bool { return v.Visibility.IsPublic() })
}

// ByCategory returns public videos of category; "all" or "" returns All.
func (c *Catalog) ByCategory(category string) []VideoRecord {
	if category == "" || category == CategoryAll {
		return c.All()
	}
	return c.filter(func(v *VideoRecord) bool {
		return v.Visibility.IsPublic() && v.Category == category
	})
}

// Search matches query case-insensitively against title, channel and
// description of public videos. A blank query returns All.
func (c *Catalog) Search(query string) []VideoRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}
	return c.filter(func(v *VideoRecord) bool {
		if !v.Visibility.IsPublic() {
			return false
		}
		return strings.Contains(strings.ToLower(v.Title), q) ||
			strings.Contains(strings.ToLower(v.Channel), q) ||
			strings.Contains(strings.ToLower(v.Description), q)
	})
}

// ByOwner returns every video of userID regardless of visibility.
func (c *Catalog) ByOwner(userID string) []VideoRecord {
	return c.filter(func(v *VideoRecord) bool { return v.ChannelID == userID })
}

// Video looks up a single record by id.
func (c *Catalog) Video(id string) (VideoRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.videos[i], true
	}
	return VideoRecord{}, false
}

func (c *Catalog) filter(keep func(*VideoRecord) bool) []VideoRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]VideoRecord, 0)
	for i := range c.videos {
		if keep(&c.videos[i]) {
			out = append(out, c.videos[i])
		}
	}
	return out
}

func (c *Catalog) indexLocked(id string) int {
	for i := range c.videos {
		if c.videos[i].ID == id {
			return i
		}
	}
	return -1
}
