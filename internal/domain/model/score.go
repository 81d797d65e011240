package model

import "time"

// TimestampLayout is a fixed-width RFC3339 layout. Unlike time.RFC3339Nano it
// keeps trailing zeros, so string order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a ScoreEvent timestamp. It also accepts plain RFC3339.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Outcomes is the evaluator contract: one flag per tested behaviour and
// status code of the participant's challenge API.
type Outcomes struct {
	Liveness          bool `json:"liveness"`
	Authenticate200   bool `json:"authenticate200"`
	Authenticate403   bool `json:"authenticate403"`
	CreateAccount201  bool `json:"createAccount201"`
	CreateAccount400  bool `json:"createAccount400"`
	CreateAccount500  bool `json:"createAccount500"`
	IndexArticles     bool `json:"indexArticles"`
	ShowArticles200   bool `json:"showArticles200"`
	ShowArticles404   bool `json:"showArticles404"`
	CreateArticles201 bool `json:"createArticles201"`
	CreateArticles400 bool `json:"createArticles400"`
	CreateArticles403 bool `json:"createArticles403"`
	UpdateArticles200 bool `json:"updateArticles200"`
	UpdateArticles400 bool `json:"updateArticles400"`
	UpdateArticles401 bool `json:"updateArticles401"`
	UpdateArticles403 bool `json:"updateArticles403"`
	UpdateArticles404 bool `json:"updateArticles404"`
	DeleteArticles200 bool `json:"deleteArticles200"`
	DeleteArticles401 bool `json:"deleteArticles401"`
	DeleteArticles403 bool `json:"deleteArticles403"`
	DeleteArticles404 bool `json:"deleteArticles404"`
}

// Passed counts the outcomes that are true.
func (o Outcomes) Passed() int {
	n := 0
	for _, v := range []bool{
		o.Liveness, o.Authenticate200, o.Authenticate403,
		o.CreateAccount201, o.CreateAccount400, o.CreateAccount500,
		o.IndexArticles, o.ShowArticles200, o.ShowArticles404,
		o.CreateArticles201, o.CreateArticles400, o.CreateArticles403,
		o.UpdateArticles200, o.UpdateArticles400, o.UpdateArticles401,
		o.UpdateArticles403, o.UpdateArticles404,
		o.DeleteArticles200, o.DeleteArticles401, o.DeleteArticles403,
		o.DeleteArticles404,
	} {
		if v {
			n++
		}
	}
	return n
}

// ScoreEvent is one immutable evaluation record.
type ScoreEvent struct {
	ID string `json:"id"`
	Outcomes
	Timestamp string `json:"timestamp"`
}
