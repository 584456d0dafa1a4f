package source

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is an identifier the API sends either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type ListResponse struct {
	Success   bool      `json:"success"`
	DiaryData DiaryData `json:"diaryData"`
}

type DiaryData struct {
	Entries []RawEntry `json:"diary_pc_page_data"`
}

// RawEntry is one diary post as returned by the listing endpoint. Every field
// is optional; absent fields are left empty.
type RawEntry struct {
	DiaryID       ID     `json:"c_diary_id"`
	CommunityID   ID     `json:"c_commu_id"`
	MemberID      ID     `json:"c_member_id"`
	Subject       string `json:"subject"`
	CreateDate    string `json:"create_date"`
	DecodedBody   string `json:"decoded_body_org"`
	Body          string `json:"body"`
	PCBody        string `json:"pcbody"`
	CoverURL      string `json:"girls_image_url"`
	MovieFilename string `json:"movie_filename"`
}

// Text returns the preferred text source: the pre-decoded body, else the raw HTML.
func (r RawEntry) Text() string {
	if r.DecodedBody != "" {
		return r.DecodedBody
	}
	return r.Body
}

// HTML returns the markup scanned for inline media.
func (r RawEntry) HTML() string {
	if r.Body != "" {
		return r.Body
	}
	return r.PCBody
}

type csrfResponse struct {
	Token string `json:"token"`
}
