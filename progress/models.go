// Package progress tracks per-enrollment lecture completion.
package progress

import (
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

// Progress is the set of completed lectures for one (user, course)
// pair. LectureIDs has set semantics; marking a lecture complete twice
// leaves a single element.
type Progress struct {
	types.Entity
	ID         id.ProgressID `json:"id"`
	UserID     id.UserID     `json:"user_id"`
	CourseID   id.CourseID   `json:"course_id"`
	Completed  bool          `json:"completed"`
	LectureIDs []string      `json:"lecture_ids,omitempty"`
}

// HasLecture reports whether the lecture is already marked complete.
func (p *Progress) HasLecture(lectureID string) bool {
	for _, l := range p.LectureIDs {
		if l == lectureID {
			return true
		}
	}
	return false
}
