package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"diary-sync/internal/config"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	token     string
	pages     map[int]string
	lastBody  map[string]any
	lastToken string
	cookies   map[string]string
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	r := mux.NewRouter()
	r.HandleFunc(csrfPath, func(w http.ResponseWriter, req *http.Request) {
		f.cookies = map[string]string{}
		for _, c := range req.Cookies() {
			f.cookies[c.Name] = c.Value
		}
		if f.token == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"token":"` + f.token + `"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc(diaryListPath, func(w http.ResponseWriter, req *http.Request) {
		f.lastToken = req.Header.Get("X-CSRF-TOKEN")
		f.lastBody = map[string]any{}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&f.lastBody))

		page := int(f.lastBody["page"].(float64))
		body, ok := f.pages[page]
		if !ok {
			body = `{"success":true,"diaryData":{"diary_pc_page_data":[]}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL, cookies string) *Client {
	c, err := NewClient(Options{
		BaseURL: baseURL,
		Cookies: cookies,
		Params:  config.Params{"girl_id": "57698938"},
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return c
}

func TestAuthenticate_SendsCookiesAndStoresToken(t *testing.T) {
	api := &fakeAPI{token: "abcdefghijklmnop"}
	srv := api.server(t)

	c := newTestClient(t, srv.URL, "PHPSESSID=xyz; vip=1; broken")
	require.NoError(t, c.Authenticate(context.Background()))

	assert.Equal(t, "abcdefghijklmnop", c.token)
	assert.Equal(t, "true", api.cookies["age_checked"])
	assert.Equal(t, "xyz", api.cookies["PHPSESSID"])
	assert.Equal(t, "1", api.cookies["vip"])
}

func TestAuthenticate_FailureIsErrAuth(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	c := newTestClient(t, srv.URL, "")
	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestFetchPage_DecodesEntries(t *testing.T) {
	api := &fakeAPI{
		token: "tok",
		pages: map[int]string{
			2: `{"success":true,"diaryData":{"diary_pc_page_data":[
				{"c_diary_id":1234567,"c_commu_id":"99","c_member_id":57698938,"subject":"hello",
				 "create_date":"1/5 09:30","body":"a<br>b","girls_image_url":"https://img.cityheaven.net/a.jpg"},
				{"c_diary_id":"890","subject":"second"}
			]}}`,
		},
	}
	srv := api.server(t)

	c := newTestClient(t, srv.URL, "")
	require.NoError(t, c.Authenticate(context.Background()))

	entries, err := c.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, ID("1234567"), entries[0].DiaryID)
	assert.Equal(t, ID("99"), entries[0].CommunityID)
	assert.Equal(t, ID("57698938"), entries[0].MemberID)
	assert.Equal(t, "1/5 09:30", entries[0].CreateDate)
	assert.Equal(t, "a<br>b", entries[0].Text())
	assert.Equal(t, ID("890"), entries[1].DiaryID)
	assert.Empty(t, entries[1].MovieFilename)

	assert.Equal(t, "tok", api.lastToken)
	assert.Equal(t, "57698938", api.lastBody["girl_id"])
	assert.Equal(t, float64(2), api.lastBody["page"])
}

func TestFetchPage_UnsuccessfulStatus(t *testing.T) {
	api := &fakeAPI{
		token: "tok",
		pages: map[int]string{1: `{"success":false}`},
	}
	srv := api.server(t)

	c := newTestClient(t, srv.URL, "")
	require.NoError(t, c.Authenticate(context.Background()))

	_, err := c.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsuccessful")
}

func TestFetchPage_RequiresToken(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "")
	_, err := c.FetchPage(context.Background(), 1)
	require.Error(t, err)
}

func TestRawEntry_TextAndHTMLFallbacks(t *testing.T) {
	r := RawEntry{DecodedBody: "decoded", Body: "<p>body</p>", PCBody: "<p>pc</p>"}
	assert.Equal(t, "decoded", r.Text())
	assert.Equal(t, "<p>body</p>", r.HTML())

	r = RawEntry{PCBody: "<p>pc</p>"}
	assert.Equal(t, "", r.Text())
	assert.Equal(t, "<p>pc</p>", r.HTML())
}
