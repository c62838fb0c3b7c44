package grading

import (
	"fmt"
	"net/url"
)

// Payload is the form body of a batch grade update.
type Payload map[string]string

// PostedGradeKey is the form key carrying the grade of one user.
func PostedGradeKey(userID int64) string {
	return fmt.Sprintf("grade_data[%d][posted_grade]", userID)
}

// BuildPayload gives every user the same grade.
func BuildPayload(userIDs []int64, grade string) Payload {
	p := make(Payload, len(userIDs))
	for _, id := range userIDs {
		p[PostedGradeKey(id)] = grade
	}
	return p
}

// Values encodes the payload for a form POST.
func (p Payload) Values() url.Values {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v
}
