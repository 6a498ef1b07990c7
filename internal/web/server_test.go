package web

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"transparencia-agent/internal/agent"
	"transparencia-agent/internal/metrics"
	"transparencia-agent/internal/session"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer starts the UI with a seeded, delay-free agent and returns a
// client that keeps the session cookie between requests.
func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	ts, client, _ := newTestServerWithStore(t)
	return ts, client
}

func newTestServerWithStore(t *testing.T) (*httptest.Server, *http.Client, *session.Store) {
	t.Helper()

	a := agent.New(newTestLogger(),
		agent.WithRand(rand.New(rand.NewPCG(10, 20))),
		agent.WithDelays(agent.Delays{}),
	)
	m := metrics.New()
	store := session.NewStore(session.DefaultTTL)
	srv, err := NewServer(newTestLogger(), store, a, m)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}, store
}

func fetch(t *testing.T, resp *http.Response, err error) *goquery.Document {
	t.Helper()
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func search(t *testing.T, ts *httptest.Server, client *http.Client, city, region string) *goquery.Document {
	t.Helper()
	resp, err := client.PostForm(ts.URL+"/search", url.Values{"cidade": {city}, "estado": {region}})
	return fetch(t, resp, err)
}

func allPortals(doc *goquery.Document) url.Values {
	form := url.Values{}
	doc.Find(`#portal-select input[name="portal"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		form.Add("portal", v)
	})
	return form
}

func TestIndex_RendersSearchForm(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/")
	doc := fetch(t, resp, err)

	assert.Equal(t, "Cidade", strings.TrimSpace(doc.Find(`label[for="cidade"]`).Text()))
	assert.Equal(t, "Estado (UF)", strings.TrimSpace(doc.Find(`label[for="estado"]`).Text()))
	maxLen, _ := doc.Find(`input[name="estado"]`).Attr("maxlength")
	assert.Equal(t, "2", maxLen)
	assert.Equal(t, "Buscar Portais de Transparência", strings.TrimSpace(doc.Find("#search-form button").Text()))

	assert.Zero(t, doc.Find("#portals").Length(), "no results before a search")
	assert.Zero(t, doc.Find("#no-portals").Length())
}

func TestIndex_IsHTML5(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	root, err := html.Parse(resp.Body)
	require.NoError(t, err)
	require.NotNil(t, root.FirstChild)
	assert.Equal(t, html.DoctypeNode, root.FirstChild.Type)
	assert.Equal(t, "html", root.FirstChild.Data)
}

func sessionCookieOf(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	return nil
}

func TestIndex_DoesNotStartSession(t *testing.T) {
	ts, client, store := newTestServerWithStore(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"GET index", http.MethodGet, "/"},
		{"HEAD index", http.MethodHead, "/"},
		{"GET report", http.MethodGet, "/report.md"},
		{"POST select", http.MethodPost, "/select"},
		{"POST download", http.MethodPost, "/download"},
		{"POST incomplete search", http.MethodPost, "/search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Nil(t, sessionCookieOf(resp))
		})
	}
	assert.Zero(t, store.Len())
}

func TestSearch_IssuesSessionCookie(t *testing.T) {
	ts, _, store := newTestServerWithStore(t)

	resp, err := http.PostForm(ts.URL+"/search", url.Values{"cidade": {"Natal"}, "estado": {"RN"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	c := sessionCookieOf(resp)
	require.NotNil(t, c, "expected a session cookie")
	assert.True(t, c.HttpOnly)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, 1, store.Len())
}

func TestSearch_ReusesSession(t *testing.T) {
	ts, client, store := newTestServerWithStore(t)

	search(t, ts, client, "Natal", "RN")
	search(t, ts, client, "Manaus", "AM")
	assert.Equal(t, 1, store.Len())
}

func TestSearch_RendersPortalTable(t *testing.T) {
	ts, client := newTestServer(t)

	doc := search(t, ts, client, "São Paulo", "SP")

	var headers []string
	doc.Find("#portals thead th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, s.Text())
	})
	assert.Equal(t, []string{"Portal", "URL", "Categorias", "Última Atualização", "Formato"}, headers)

	rows := doc.Find("#portals tbody tr")
	require.Equal(t, 4, rows.Length())
	rows.Each(func(_ int, s *goquery.Selection) {
		u := s.Find("td").Eq(1).Text()
		assert.Contains(t, u, "são paulo")
		assert.Contains(t, u, "sp")
		assert.True(t, strings.HasPrefix(s.Find("td").First().Text(), "Portal de Transparência - "))
	})

	assert.Equal(t, 4, doc.Find(`#portal-select input[name="portal"]`).Length())
	_, disabled := doc.Find("#download-button").Attr("disabled")
	assert.True(t, disabled, "download is disabled until portals are selected")
}

func TestSearch_IncompleteInputDoesNothing(t *testing.T) {
	ts, client := newTestServer(t)

	for _, tc := range []struct{ city, region string }{
		{"", "SP"},
		{"Santos", ""},
		{"   ", "  "},
	} {
		doc := search(t, ts, client, tc.city, tc.region)
		assert.Zero(t, doc.Find("#portals").Length())
		assert.Zero(t, doc.Find("#no-portals").Length())
	}
}

func TestSearch_RegionTruncated(t *testing.T) {
	ts, client := newTestServer(t)

	doc := search(t, ts, client, "Santos", "SPX")
	u := doc.Find("#portals tbody tr").First().Find("td").Eq(1).Text()
	assert.Equal(t, "https://transparencia.santos.sp.gov.br", u)
}

func TestSelect_OffersCategoryUnion(t *testing.T) {
	ts, client := newTestServer(t)
	doc := search(t, ts, client, "Recife", "PE")

	want := map[string]bool{}
	doc.Find("#portals tbody tr").Eq(0).Find("td").Eq(2).Each(func(_ int, s *goquery.Selection) {
		for _, c := range strings.Split(s.Text(), ", ") {
			want[c] = true
		}
	})

	resp, err := client.PostForm(ts.URL+"/select", url.Values{"portal": {"0"}})
	doc = fetch(t, resp, err)

	var got []string
	doc.Find(`#category-select input[name="categoria"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		got = append(got, v)
	})
	assert.Len(t, got, len(want))
	for _, c := range got {
		assert.True(t, want[c], "unexpected category %q", c)
	}
	assert.IsNonDecreasing(t, got)

	_, checked := doc.Find(`#portal-select input[value="0"]`).Attr("checked")
	assert.True(t, checked)
	_, disabled := doc.Find("#download-button").Attr("disabled")
	assert.False(t, disabled)
}

func TestDownload_FullFlow(t *testing.T) {
	ts, client := newTestServer(t)
	doc := search(t, ts, client, "Porto Alegre", "RS")

	form := allPortals(doc)
	for _, c := range agent.Vocabulary {
		form.Add("categoria", string(c))
	}
	resp, err := client.PostForm(ts.URL+"/download", form)
	doc = fetch(t, resp, err)

	var headers []string
	doc.Find("#downloads thead th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, s.Text())
	})
	assert.Equal(t, []string{"Portal", "Categoria", "Arquivo", "Tamanho", "Status"}, headers)

	rows := doc.Find("#downloads tbody tr")
	require.Positive(t, rows.Length())

	failed := 0
	rows.Each(func(_ int, s *goquery.Selection) {
		status := s.Find("td").Eq(4).Text()
		assert.Contains(t, []string{"Concluído", "Erro"}, status)
		if status == "Erro" {
			failed++
		}
		assert.True(t, strings.HasSuffix(s.Find("td").Eq(3).Text(), " KB"))
	})

	success := doc.Find("#summary-success").Text()
	assert.Contains(t, success, strconv.Itoa(rows.Length()-failed)+" arquivos baixados com sucesso")
	if failed > 0 {
		assert.Contains(t, doc.Find("#summary-error").Text(), strconv.Itoa(failed)+" arquivos com erro")
	} else {
		assert.Zero(t, doc.Find("#summary-error").Length())
	}

	metricsResp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, _ := io.ReadAll(metricsResp.Body)
	assert.Contains(t, string(body), "transparencia_searches_total 1")
}

func TestDownload_NothingSelected(t *testing.T) {
	ts, client := newTestServer(t)
	search(t, ts, client, "Maceió", "AL")

	resp, err := client.PostForm(ts.URL+"/download", url.Values{"portal": {"0"}})
	doc := fetch(t, resp, err)

	assert.Zero(t, doc.Find("#downloads").Length())
	assert.Equal(t, 4, doc.Find("#portals tbody tr").Length())
}

func TestDownload_ResultsLastOneRender(t *testing.T) {
	ts, client := newTestServer(t)
	doc := search(t, ts, client, "Natal", "RN")

	form := allPortals(doc)
	for _, c := range agent.Vocabulary {
		form.Add("categoria", string(c))
	}
	resp, err := client.PostForm(ts.URL+"/download", form)
	doc = fetch(t, resp, err)
	require.Positive(t, doc.Find("#downloads tbody tr").Length())

	t.Run("Select other portals", func(t *testing.T) {
		resp, err := client.PostForm(ts.URL+"/select", url.Values{"portal": {"0"}})
		doc := fetch(t, resp, err)
		assert.Zero(t, doc.Find("#downloads").Length())
		assert.Zero(t, doc.Find("#summary-success").Length())
		assert.Equal(t, 4, doc.Find("#portals tbody tr").Length())
	})

	t.Run("Download with nothing selected", func(t *testing.T) {
		resp, err := client.PostForm(ts.URL+"/download", url.Values{})
		doc := fetch(t, resp, err)
		assert.Zero(t, doc.Find("#downloads").Length())
	})

	t.Run("Reload index", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/")
		doc := fetch(t, resp, err)
		assert.Zero(t, doc.Find("#downloads").Length())
		assert.Equal(t, 4, doc.Find("#portals tbody tr").Length())
	})

	t.Run("Report", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/report.md")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(body), "Resultados do Download")
	})
}

func TestSearch_ResubmitReplacesState(t *testing.T) {
	ts, client := newTestServer(t)
	doc := search(t, ts, client, "Natal", "RN")

	form := allPortals(doc)
	for _, c := range agent.Vocabulary {
		form.Add("categoria", string(c))
	}
	resp, err := client.PostForm(ts.URL+"/download", form)
	fetch(t, resp, err)

	doc = search(t, ts, client, "Manaus", "AM")
	assert.Zero(t, doc.Find("#downloads").Length())
	doc.Find("#portals tbody tr").Each(func(_ int, s *goquery.Selection) {
		assert.NotContains(t, s.Text(), "natal")
	})
	assert.Zero(t, doc.Find(`#portal-select input[checked]`).Length())
}

func TestSessionsAreIsolated(t *testing.T) {
	ts, client := newTestServer(t)
	search(t, ts, client, "Natal", "RN")

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &http.Client{Jar: jar}

	resp, err := other.Get(ts.URL + "/")
	doc := fetch(t, resp, err)
	assert.Zero(t, doc.Find("#portals").Length())
}

func TestReport(t *testing.T) {
	ts, client := newTestServer(t)
	search(t, ts, client, "Cuiabá", "MT")

	resp, err := client.Get(ts.URL + "/report.md")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cuiabá")
	assert.Contains(t, string(body), "Portais de Transparência Encontrados")
}

func TestMethodNotAllowed(t *testing.T) {
	ts, client := newTestServer(t)

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/search"},
		{http.MethodGet, "/select"},
		{http.MethodGet, "/download"},
		{http.MethodPost, "/report.md"},
		{http.MethodDelete, "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestNotFoundAndStatic(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/static/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}

func TestEmptyPortalsShowsWarning(t *testing.T) {
	srv, err := NewServer(newTestLogger(), session.NewStore(0), agent.New(newTestLogger()), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.render(rec, TemplateData{Session: session.Snapshot{State: session.StatePortalsFound}})

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "Nenhum portal de transparência encontrado.", strings.TrimSpace(doc.Find("#no-portals").Text()))
	assert.Zero(t, doc.Find("#portals").Length())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "SP", truncateRunes("SP", 2))
	assert.Equal(t, "SÃ", truncateRunes("SÃO", 2))
	assert.Equal(t, "", truncateRunes("", 2))
}
