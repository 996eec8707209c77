// Package course defines the course catalog entities.
//
// Chapters and lectures are opaque nested data to the purchase core: the
// engine stores and returns them but only the price snapshot fields
// (ListPrice, DiscountPercent) participate in any invariant.
package course

import (
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

type Course struct {
	types.Entity
	ID          id.CourseID `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Thumbnail   string      `json:"thumbnail,omitempty"` // opaque URL, hosted externally
	EducatorID  id.UserID   `json:"educator_id"`

	// Price snapshot source. Read at purchase creation only; changing
	// these never affects existing ledger entries.
	ListPrice       types.Money `json:"list_price"`
	DiscountPercent int         `json:"discount_percent"` // 0–100 inclusive

	Published bool      `json:"published"`
	Chapters  []Chapter `json:"chapters,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

type Chapter struct {
	ID       id.ID     `json:"id"`
	Order    int       `json:"order"`
	Title    string    `json:"title"`
	Lectures []Lecture `json:"lectures,omitempty"`
}

type Lecture struct {
	ID          id.ID  `json:"id"`
	Order       int    `json:"order"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	DurationMin int    `json:"duration_min"`
	FreePreview bool   `json:"free_preview"`
}

// Rating is a per-user 1–5 score, at most one per (user, course).
type Rating struct {
	UserID id.UserID `json:"user_id"`
	Score  int       `json:"score"`
}

// CurrentPrice returns the price a buyer pays right now: the list price
// with the current discount applied, rounded half-up to the minor unit.
func (c *Course) CurrentPrice() types.Money {
	return c.ListPrice.ApplyDiscountPercent(c.DiscountPercent)
}

// Clone returns a deep copy of the course. Stores may hand out shared
// pointers, so callers must clone before mutating a course they did not
// create.
func (c *Course) Clone() *Course {
	out := *c
	if c.Chapters != nil {
		out.Chapters = make([]Chapter, len(c.Chapters))
		for ci, ch := range c.Chapters {
			out.Chapters[ci] = ch
			if ch.Lectures != nil {
				out.Chapters[ci].Lectures = make([]Lecture, len(ch.Lectures))
				copy(out.Chapters[ci].Lectures, ch.Lectures)
			}
		}
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// StripLockedLectureURLs blanks the URL of every lecture that is not a
// free preview. Used when serving course details to non-enrolled users.
func (c *Course) StripLockedLectureURLs() {
	for ci := range c.Chapters {
		for li := range c.Chapters[ci].Lectures {
			if !c.Chapters[ci].Lectures[li].FreePreview {
				c.Chapters[ci].Lectures[li].URL = ""
			}
		}
	}
}

// LectureCount returns the total number of lectures across all chapters.
func (c *Course) LectureCount() int {
	n := 0
	for _, ch := range c.Chapters {
		n += len(ch.Lectures)
	}
	return n
}

// HasLecture reports whether the given lecture ID exists in the course.
func (c *Course) HasLecture(lectureID id.ID) bool {
	for _, ch := range c.Chapters {
		for _, l := range ch.Lectures {
			if l.ID.String() == lectureID.String() {
				return true
			}
		}
	}
	return false
}
