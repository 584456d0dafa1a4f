package ingest

import (
	"fmt"
	"strings"
)

// FailureKind is the closed set of non-fatal failures a run can absorb.
type FailureKind string

const (
	FailurePageFetch  FailureKind = "page_fetch"
	FailureMemberOnly FailureKind = "member_only"
	FailureTranslate  FailureKind = "translate"
	FailureMedia      FailureKind = "media"
	FailureDateParse  FailureKind = "date_parse"
	FailurePublish    FailureKind = "publish"
	FailureEvent      FailureKind = "event"
)

// Failure records one degraded step. The run continued with a fallback value.
type Failure struct {
	Kind    FailureKind
	EntryID string
	Page    int
	Err     error
}

func (f Failure) Error() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.EntryID != "" {
		fmt.Fprintf(&b, " entry=%s", f.EntryID)
	}
	if f.Page > 0 {
		fmt.Fprintf(&b, " page=%d", f.Page)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f Failure) Unwrap() error {
	return f.Err
}

type Report struct {
	Backfill  bool
	Pages     int
	Fetched   int
	New       int
	Stored    int
	Published int
	Failures  []Failure
}

func (r *Report) add(f ...Failure) {
	r.Failures = append(r.Failures, f...)
}

// Count returns how many failures of kind were recorded.
func (r *Report) Count(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func (r Report) String() string {
	return fmt.Sprintf("pages=%d fetched=%d new=%d stored=%d published=%d failures=%d",
		r.Pages, r.Fetched, r.New, r.Stored, r.Published, len(r.Failures))
}
